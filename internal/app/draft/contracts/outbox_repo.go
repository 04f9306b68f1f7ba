package contracts

import (
	"time"

	"cloud.google.com/go/spanner"
)

// OutboxStatusPending marks an outbox row not yet picked up by a relay.
const OutboxStatusPending = "pending"

// OutboxRepo is the write-side repository interface for the transactional outbox.
// It returns Spanner mutations; it does not apply them.
type OutboxRepo interface {
	InsertMut(e *OutboxEvent) (*spanner.Mutation, error)
}

// OutboxEvent is the application-level representation of an event persisted to the outbox table.
type OutboxEvent struct {
	EventID      string
	EventType    string
	AggregateID  string
	PayloadJSON  string
	Status       string
	CreatedAtUTC time.Time
}
