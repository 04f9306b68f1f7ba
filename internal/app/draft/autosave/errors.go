package autosave

import (
	"fmt"
	"strings"
)

// SaveError is returned to callers of BatchSave and Flush when the persist
// function rejects a save. The dirty fields it lists remain queued for retry.
type SaveError struct {
	DraftID string
	Attempt int
	Fields  []string
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save draft %s (attempt %d, fields %s): %v",
		e.DraftID, e.Attempt, strings.Join(e.Fields, ","), e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
