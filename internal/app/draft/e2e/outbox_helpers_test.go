package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

// savedEvent is a draft.fields_saved outbox row with its payload decoded.
type savedEvent struct {
	EventType string
	Status    string
	CreatedAt time.Time

	DraftID string    `json:"draft_id"`
	Fields  []string  `json:"fields"`
	SavedAt time.Time `json:"saved_at"`
}

// mustFetchSavedEvents returns the outbox rows of draftID in commit order.
func mustFetchSavedEvents(ctx context.Context, t *testing.T, draftID string) []savedEvent {
	t.Helper()

	iter := spClient.Single().Query(ctx, spanner.Statement{
		SQL: `SELECT event_type, status, created_at, payload
		      FROM outbox_events
		      WHERE aggregate_id = @id
		      ORDER BY created_at, event_id`,
		Params: map[string]any{"id": draftID},
	})
	defer iter.Stop()

	var out []savedEvent
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			return out
		}
		require.NoError(t, err)

		var (
			ev      savedEvent
			payload string
		)
		require.NoError(t, row.Columns(&ev.EventType, &ev.Status, &ev.CreatedAt, &payload))
		require.NoError(t, json.Unmarshal([]byte(payload), &ev), "payload of %s", draftID)
		out = append(out, ev)
	}
}
