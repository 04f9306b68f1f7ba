package m_outbox

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Row is one outbox_events record. ProcessedAt stays null until a relay picks it up.
type Row struct {
	EventID     string           `spanner:"event_id"`
	EventType   string           `spanner:"event_type"`
	AggregateID string           `spanner:"aggregate_id"`
	Payload     string           `spanner:"payload"`
	Status      string           `spanner:"status"`
	CreatedAt   time.Time        `spanner:"created_at"`
	ProcessedAt spanner.NullTime `spanner:"processed_at"`
}

// InsertMutation builds the insert for row. Event ids are unique, so a
// duplicate insert aborts the whole commit instead of overwriting.
func InsertMutation(row *Row) (*spanner.Mutation, error) {
	return spanner.InsertStruct(TableName, row)
}
