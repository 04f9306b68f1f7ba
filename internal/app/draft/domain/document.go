package domain

// SaveStatus represents the autosave state shown by the editor's save indicator.
type SaveStatus string

const (
	// SaveStatusIdle indicates unsaved edits may exist and no save is running.
	SaveStatusIdle SaveStatus = "idle"

	// SaveStatusSaving indicates exactly one save request is outstanding.
	SaveStatusSaving SaveStatus = "saving"

	// SaveStatusSaved indicates the last save succeeded and nothing is dirty.
	SaveStatusSaved SaveStatus = "saved"

	// SaveStatusError indicates the last save failed; dirty fields are kept for retry.
	SaveStatusError SaveStatus = "error"
)

// Document is the live form state of one draft being edited.
type Document struct {
	DraftID     string
	Fields      map[string]any
	CurrentStep int
}

// NewDocument creates an empty document for draftID.
func NewDocument(draftID string) *Document {
	return &Document{
		DraftID: draftID,
		Fields:  make(map[string]any),
	}
}

// Value returns the current value of field.
func (d *Document) Value(field string) (any, bool) {
	v, ok := d.Fields[field]
	return v, ok
}

// Clone returns a copy whose field map can be read without holding the owner's lock.
// Field values themselves are shared.
func (d *Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return Document{DraftID: d.DraftID, Fields: fields, CurrentStep: d.CurrentStep}
}
