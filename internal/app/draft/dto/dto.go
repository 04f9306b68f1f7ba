package dto

// DraftDTO is the read-side projection of a persisted draft.
type DraftDTO struct {
	DraftID   string
	Fields    map[string]any
	UpdatedAt *string // RFC3339
}
