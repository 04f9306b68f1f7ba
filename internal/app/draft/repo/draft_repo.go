package repo

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/models/m_draft"
)

// DraftRepo is the Spanner implementation of the write-side repository.
// It returns *spanner.Mutation objects but never applies them.
type DraftRepo struct{}

func NewDraftRepo() *DraftRepo {
	return &DraftRepo{}
}

// buildFieldValues encodes every field into its draft_fields row, ordered by
// field name. Unexported so tests can inspect rows without spanner.Mutation internals.
func buildFieldValues(draftID string, fields map[string]any, now time.Time) ([]map[string]interface{}, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, domain.ErrEmptyFieldName
		}
		b, err := json.Marshal(fields[name])
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		rows = append(rows, m_draft.BuildFieldMap(draftID, name, string(b), now))
	}
	return rows, nil
}

// PatchMuts returns the draft row upsert followed by one upsert per field.
// Fields that are not in the patch are left untouched.
func (r *DraftRepo) PatchMuts(draftID string, fields map[string]any, now time.Time) ([]*spanner.Mutation, error) {
	if draftID == "" {
		return nil, domain.ErrEmptyDraftID
	}
	if len(fields) == 0 {
		return nil, nil
	}

	now = now.UTC()
	rows, err := buildFieldValues(draftID, fields, now)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[m_draft.ColFieldName].(string))
	}

	muts := make([]*spanner.Mutation, 0, len(rows)+1)
	muts = append(muts, m_draft.TouchMutation(m_draft.BuildTouchMap(draftID, names, now)))
	for _, row := range rows {
		muts = append(muts, m_draft.FieldMutation(row))
	}
	return muts, nil
}
