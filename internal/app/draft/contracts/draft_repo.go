package contracts

import (
	"time"

	"cloud.google.com/go/spanner"
)

// DraftRepo is the write-side repository for draft fields.
// Methods return Spanner mutations; they do not apply them.
type DraftRepo interface {
	// PatchMuts returns one upsert per field plus a touch of the draft row.
	// Applying the same patch twice leaves the same state.
	PatchMuts(draftID string, fields map[string]any, now time.Time) ([]*spanner.Mutation, error)
}
