package get_draft

import (
	"context"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
)

type Handler struct {
	readModel contracts.ReadModel
}

func NewHandler(r contracts.ReadModel) *Handler {
	return &Handler{readModel: r}
}

func (h *Handler) Execute(ctx context.Context, draftID string) (*dto.DraftDTO, error) {
	if draftID == "" {
		return nil, domain.ErrEmptyDraftID
	}
	return h.readModel.GetDraft(ctx, draftID)
}
