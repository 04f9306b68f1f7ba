package get_draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
)

// SpannerGetDraftQuery reads a draft and all its fields from Spanner directly.
type SpannerGetDraftQuery struct {
	Client *spanner.Client
}

func NewSpannerGetDraftQuery(client *spanner.Client) *SpannerGetDraftQuery {
	return &SpannerGetDraftQuery{Client: client}
}

// GetDraft returns domain.ErrDraftNotFound when the draft row does not exist.
func (q *SpannerGetDraftQuery) GetDraft(ctx context.Context, draftID string) (*dto.DraftDTO, error) {
	stmt := spanner.Statement{
		SQL: `SELECT d.draft_id, d.updated_at, f.field_name, f.value_json
		      FROM drafts d
		      LEFT JOIN draft_fields f ON f.draft_id = d.draft_id
		      WHERE d.draft_id = @id
		      ORDER BY f.field_name`,
		Params: map[string]interface{}{"id": draftID},
	}

	iter := q.Client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var out *dto.DraftDTO
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var (
			id        string
			updatedAt time.Time
			fieldName spanner.NullString
			valueJSON spanner.NullString
		)
		if err := row.Columns(&id, &updatedAt, &fieldName, &valueJSON); err != nil {
			return nil, err
		}

		if out == nil {
			u := updatedAt.UTC().Format(time.RFC3339)
			out = &dto.DraftDTO{DraftID: id, Fields: map[string]any{}, UpdatedAt: &u}
		}
		if !fieldName.Valid {
			continue
		}
		value, err := decodeValue(valueJSON)
		if err != nil {
			return nil, fmt.Errorf("draft %s field %s: %w", id, fieldName.StringVal, err)
		}
		out.Fields[fieldName.StringVal] = value
	}

	if out == nil {
		return nil, domain.ErrDraftNotFound
	}
	return out, nil
}

func decodeValue(raw spanner.NullString) (any, error) {
	if !raw.Valid || raw.StringVal == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw.StringVal), &v); err != nil {
		return nil, err
	}
	return v, nil
}
