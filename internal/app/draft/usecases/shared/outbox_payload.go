package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// MarshalDomainEventPayload converts a domain event into a JSON payload suitable for the outbox.
func MarshalDomainEventPayload(ev domain.DomainEvent) (string, error) {
	if ev == nil {
		return "{}", nil
	}

	switch e := ev.(type) {
	case *domain.DraftFieldsSavedEvent:
		payload := map[string]interface{}{
			"draft_id":    e.DraftID,
			"fields":      e.Fields,
			"saved_at":    e.SavedAt.UTC().Format(time.RFC3339Nano),
			"occurred_at": e.OccurredAt().UTC().Format(time.RFC3339Nano),
		}
		b, err := json.Marshal(payload)
		return string(b), err
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal outbox payload for %T: %w", ev, err)
	}
	return string(b), nil
}
