package domain

import (
	"reflect"
	"sort"
	"time"
)

// DirtyEntry records the latest unsaved change of one field.
type DirtyEntry struct {
	Field     string
	OldValue  any
	NewValue  any
	Timestamp time.Time
	Policy    FieldPolicy

	// Revision increases on every recorded change across the tracker. A snapshot
	// remembers the revision it captured so a later clear leaves newer writes alone.
	Revision uint64
}

// Snapshot is the payload of one save: field -> value as of the moment it was taken.
type Snapshot struct {
	Fields    map[string]any
	revisions map[string]uint64
}

// IsEmpty reports whether the snapshot carries no fields.
func (s Snapshot) IsEmpty() bool {
	return len(s.Fields) == 0
}

// Len returns the number of fields in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Fields)
}

// FieldNames returns the snapshot's field names in sorted order.
func (s Snapshot) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for f := range s.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// DirtyFieldTracker tracks which fields of a Document changed since the last
// successful save. Only the latest write per field is kept.
//
// It is not safe for concurrent use; the owner serializes access.
type DirtyFieldTracker struct {
	doc      *Document
	policies *PolicyRegistry
	entries  map[string]*DirtyEntry
	revision uint64
}

// NewDirtyFieldTracker creates a tracker over doc.
func NewDirtyFieldTracker(doc *Document, policies *PolicyRegistry) *DirtyFieldTracker {
	return &DirtyFieldTracker{
		doc:      doc,
		policies: policies,
		entries:  make(map[string]*DirtyEntry),
	}
}

// RecordChange applies value to the document and marks field dirty.
// It returns false, and changes nothing, when value equals the current value.
func (t *DirtyFieldTracker) RecordChange(field string, value any, now time.Time) bool {
	old, _ := t.doc.Value(field)
	if reflect.DeepEqual(old, value) {
		return false
	}
	t.doc.Fields[field] = value
	t.mark(field, old, value, now)
	return true
}

// Restore marks field dirty with value even if the document already holds it.
// Used when replaying journaled edits that never reached the server.
func (t *DirtyFieldTracker) Restore(field string, value any, now time.Time) {
	old, _ := t.doc.Value(field)
	t.doc.Fields[field] = value
	t.mark(field, old, value, now)
}

func (t *DirtyFieldTracker) mark(field string, old, value any, now time.Time) {
	t.revision++
	t.entries[field] = &DirtyEntry{
		Field:     field,
		OldValue:  old,
		NewValue:  value,
		Timestamp: now,
		Policy:    t.policies.PolicyFor(field),
		Revision:  t.revision,
	}
}

// Dirty checks if a specific field has an unsaved change.
func (t *DirtyFieldTracker) Dirty(field string) bool {
	_, ok := t.entries[field]
	return ok
}

// Entry returns the dirty entry for field.
func (t *DirtyFieldTracker) Entry(field string) (DirtyEntry, bool) {
	e, ok := t.entries[field]
	if !ok {
		return DirtyEntry{}, false
	}
	return *e, true
}

// HasChanges returns true if any field is dirty.
func (t *DirtyFieldTracker) HasChanges() bool {
	return len(t.entries) > 0
}

// Count returns the number of dirty fields.
func (t *DirtyFieldTracker) Count() int {
	return len(t.entries)
}

// DirtyFields returns the dirty field names in sorted order.
func (t *DirtyFieldTracker) DirtyFields() []string {
	fields := make([]string, 0, len(t.entries))
	for field := range t.entries {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Entries returns a copy of every dirty entry, ordered by field name.
func (t *DirtyFieldTracker) Entries() []DirtyEntry {
	out := make([]DirtyEntry, 0, len(t.entries))
	for _, field := range t.DirtyFields() {
		out = append(out, *t.entries[field])
	}
	return out
}

// DirtySnapshot projects the dirty set into a save payload.
func (t *DirtyFieldTracker) DirtySnapshot() Snapshot {
	s := Snapshot{
		Fields:    make(map[string]any, len(t.entries)),
		revisions: make(map[string]uint64, len(t.entries)),
	}
	for field, e := range t.entries {
		s.Fields[field] = e.NewValue
		s.revisions[field] = e.Revision
	}
	return s
}

// ClearSnapshot removes the entries captured by s in one step. Fields written
// again after s was taken stay dirty. It returns the cleared field names.
func (t *DirtyFieldTracker) ClearSnapshot(s Snapshot) []string {
	cleared := make([]string, 0, len(s.revisions))
	for field, rev := range s.revisions {
		if e, ok := t.entries[field]; ok && e.Revision == rev {
			delete(t.entries, field)
			cleared = append(cleared, field)
		}
	}
	sort.Strings(cleared)
	return cleared
}

// ClearAll removes every dirty entry.
func (t *DirtyFieldTracker) ClearAll() {
	t.entries = make(map[string]*DirtyEntry)
}
