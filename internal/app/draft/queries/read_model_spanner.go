package queries

import (
	"context"

	"cloud.google.com/go/spanner"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/queries/get_draft"
)

// SpannerReadModel is an infrastructure adapter that satisfies contracts.ReadModel.
type SpannerReadModel struct {
	getQ *get_draft.SpannerGetDraftQuery
}

func NewSpannerReadModel(client *spanner.Client) *SpannerReadModel {
	return &SpannerReadModel{
		getQ: get_draft.NewSpannerGetDraftQuery(client),
	}
}

func (rm *SpannerReadModel) GetDraft(ctx context.Context, draftID string) (*dto.DraftDTO, error) {
	return rm.getQ.GetDraft(ctx, draftID)
}
