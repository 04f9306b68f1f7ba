package contracts

import (
	"context"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
)

type ReadModel interface {
	GetDraft(ctx context.Context, draftID string) (*dto.DraftDTO, error)
}
