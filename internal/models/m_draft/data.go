package m_draft

import (
	"time"

	"cloud.google.com/go/spanner"
)

// BuildFieldMap prepares one draft_fields row. valueJSON is the JSON encoding of the field value.
func BuildFieldMap(draftID, fieldName, valueJSON string, updatedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		ColDraftID:   draftID,
		ColFieldName: fieldName,
		ColValueJSON: valueJSON,
		ColUpdatedAt: updatedAt,
	}
}

// FieldMutation upserts a single field row. Re-applying it leaves the same state.
func FieldMutation(values map[string]interface{}) *spanner.Mutation {
	return spanner.InsertOrUpdateMap(TableDraftFields, values)
}

// BuildTouchMap prepares the drafts row written alongside every patch.
func BuildTouchMap(draftID string, fields []string, updatedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		ColDraftID:         draftID,
		ColUpdatedAt:       updatedAt,
		ColLastSavedFields: fields,
	}
}

// TouchMutation upserts the draft row so the parent exists before its fields.
func TouchMutation(values map[string]interface{}) *spanner.Mutation {
	return spanner.InsertOrUpdateMap(TableDrafts, values)
}
