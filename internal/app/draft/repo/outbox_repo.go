package repo

import (
	"cloud.google.com/go/spanner"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/models/m_outbox"
)

// OutboxRepo is the Spanner implementation of the transactional outbox repository.
// It returns *spanner.Mutation but never applies it.
type OutboxRepo struct{}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

func (r *OutboxRepo) InsertMut(e *contracts.OutboxEvent) (*spanner.Mutation, error) {
	if e == nil {
		return nil, nil
	}
	return m_outbox.InsertMutation(&m_outbox.Row{
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		Payload:     e.PayloadJSON,
		Status:      e.Status,
		CreatedAt:   e.CreatedAtUTC.UTC(),
	})
}
