package domain

import "errors"

// Domain errors for draft identity and editing
var (
	// ErrEmptyDraftID indicates an operation that needs a draft id received none.
	ErrEmptyDraftID = errors.New("draft id cannot be empty")

	// ErrEmptyFieldName indicates a field update without a field name.
	ErrEmptyFieldName = errors.New("field name cannot be empty")

	// ErrNoActiveDraft indicates an edit arrived before a draft was initialized or after it was cleared.
	ErrNoActiveDraft = errors.New("no active draft")

	// ErrDraftClosing indicates an edit arrived while the draft was being saved and closed.
	ErrDraftClosing = errors.New("draft is closing")

	// ErrDraftNotFound indicates that a draft with the given ID does not exist.
	ErrDraftNotFound = errors.New("draft not found")
)

// Domain errors for saving
var (
	// ErrNoPersister indicates a save was requested without a persist function.
	ErrNoPersister = errors.New("no persist function configured")
)

// Domain errors for field policy configuration
var (
	// ErrUnknownSensitivityClass indicates a policy names a class other than text, select or complex.
	ErrUnknownSensitivityClass = errors.New("unknown sensitivity class")

	// ErrInvalidDebounce indicates a policy with a non-positive debounce interval.
	ErrInvalidDebounce = errors.New("debounce must be positive")
)
