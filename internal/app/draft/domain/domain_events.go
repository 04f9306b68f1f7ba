package domain

import "time"

// DomainEvent is a marker interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// DraftFieldsSavedEvent is raised when a partial patch of draft fields is durably written.
type DraftFieldsSavedEvent struct {
	DraftID string
	Fields  []string
	SavedAt time.Time
}

func (e *DraftFieldsSavedEvent) EventType() string {
	return "draft.fields_saved"
}

func (e *DraftFieldsSavedEvent) AggregateID() string {
	return e.DraftID
}

func (e *DraftFieldsSavedEvent) OccurredAt() time.Time {
	return e.SavedAt
}
