package m_draft

// Field constants for the drafts and draft_fields tables.
const (
	TableDrafts = "drafts"

	ColDraftID         = "draft_id"
	ColUpdatedAt       = "updated_at"
	ColLastSavedFields = "last_saved_fields"

	// draft_fields is interleaved in drafts (ON DELETE CASCADE); one row per field.
	TableDraftFields = "draft_fields"

	ColFieldName = "field_name"
	ColValueJSON = "value_json"
)
