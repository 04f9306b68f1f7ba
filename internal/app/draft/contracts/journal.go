package contracts

import "context"

// Journal is a local, durable mirror of edits that have not been confirmed by
// the server yet. It lets an editor recover unsaved keystrokes after a crash.
type Journal interface {
	// Put upserts the given field values for draftID.
	Put(ctx context.Context, draftID string, fields map[string]any) error

	// Load returns every journaled field of draftID. A missing draft yields an empty map.
	Load(ctx context.Context, draftID string) (map[string]any, error)

	// Discard removes the given fields once the server has acknowledged them.
	Discard(ctx context.Context, draftID string, fields []string) error

	// Purge drops everything journaled for draftID.
	Purge(ctx context.Context, draftID string) error
}
