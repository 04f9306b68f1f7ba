// Package autosave coordinates debounced, coalesced saves of a single draft.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
)

// Manager owns the editing state of one draft at a time: the document, its
// dirty fields, the save status and the debounce timer. All methods are safe
// for concurrent use.
//
// At most one persist call is outstanding per Manager. Edits that arrive while
// a save is in flight stay dirty and go out with the next save.
type Manager struct {
	mu sync.Mutex

	// journalMu orders journal writes. It is taken before mu, never while mu
	// is held, so journal I/O does not block editing.
	journalMu sync.Mutex

	policies    *domain.PolicyRegistry
	clock       clock.Clock
	persist     PersistFunc
	journal     contracts.Journal
	logger      *slog.Logger
	tracer      trace.Tracer
	saveTimeout time.Duration
	retry       RetryPolicy
	backoff     *backoff.ExponentialBackOff
	limiter     *rate.Limiter

	doc        *domain.Document
	tracker    *domain.DirtyFieldTracker
	status     domain.SaveStatus
	lastError  error
	retryCount int
	closing    bool

	// epoch changes whenever the draft is switched or cleared. A save that
	// resolves under an older epoch only contributes to metrics.
	epoch uint64

	sched   scheduler
	pending *pendingSave
	metrics *metricsRecorder
	subs    subscribers
}

// New creates a Manager with no active draft.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	m := &Manager{
		policies:    opts.Policies,
		clock:       opts.Clock,
		persist:     opts.Persist,
		journal:     opts.Journal,
		logger:      opts.Logger.With("component", "autosave"),
		tracer:      opts.Tracer,
		saveTimeout: opts.SaveTimeout,
		retry:       opts.Retry,
		status:      domain.SaveStatusIdle,
		sched:       scheduler{clock: opts.Clock},
	}
	m.metrics = newMetricsRecorder(opts.Meter, m.logger)
	if opts.SaveRate > 0 {
		m.limiter = rate.NewLimiter(opts.SaveRate, opts.SaveBurst)
	}
	if opts.Retry.Enabled() {
		m.backoff = opts.Retry.newBackOff()
	}
	return m
}

// InitializeDraft makes draftID the active draft and returns it. An empty id
// starts a new draft under a generated id.
//
// Re-initializing the active draft is a no-op. Switching to another id discards
// the previous draft's unsaved edits, step and status; no save is issued for them.
func (m *Manager) InitializeDraft(ctx context.Context, draftID string) string {
	if draftID == "" {
		draftID = uuid.NewString()
	}

	m.mu.Lock()
	if m.doc != nil && m.doc.DraftID == draftID {
		m.mu.Unlock()
		return draftID
	}
	prev := m.draftIDLocked()
	discarded := 0
	if m.tracker != nil {
		discarded = m.tracker.Count()
	}
	m.resetLocked(domain.NewDocument(draftID))
	journal := m.journal
	m.mu.Unlock()

	if prev != "" {
		m.logger.Info("draft switched", "from", prev, "to", draftID, "discarded_fields", discarded)
		m.purgeJournal(ctx, journal, prev)
	}
	return draftID
}

// UpdateField records an edit and re-arms the debounce timer. Writing the value
// a field already holds changes nothing and does not reschedule.
func (m *Manager) UpdateField(ctx context.Context, field string, value any) error {
	if field == "" {
		return domain.ErrEmptyFieldName
	}

	m.mu.Lock()
	if m.tracker == nil {
		m.mu.Unlock()
		return domain.ErrNoActiveDraft
	}
	if m.closing {
		m.mu.Unlock()
		return domain.ErrDraftClosing
	}
	if !m.tracker.RecordChange(field, value, m.clock.Now()) {
		m.mu.Unlock()
		return nil
	}
	m.setStatusLocked(domain.SaveStatusIdle)
	m.rescheduleLocked()
	draftID := m.draftIDLocked()
	journal := m.journal
	m.mu.Unlock()

	if journal != nil {
		m.mirrorField(ctx, journal, draftID, field)
	}
	return nil
}

// GoToStep moves the editor to step and flushes pending edits when a persist
// function is configured.
func (m *Manager) GoToStep(ctx context.Context, step int) error {
	m.mu.Lock()
	if m.doc == nil {
		m.mu.Unlock()
		return domain.ErrNoActiveDraft
	}
	m.doc.CurrentStep = step
	hasPersist := m.persist != nil
	m.mu.Unlock()

	if !hasPersist {
		return nil
	}
	return m.Flush(ctx)
}

// Flush cancels the debounce timer and saves the dirty set now, returning the
// persist error to the caller.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	persist := m.persist
	if persist == nil {
		m.mu.Unlock()
		return domain.ErrNoPersister
	}
	m.sched.invalidate()
	m.mu.Unlock()

	return m.batchSave(ctx, persist, nil)
}

// Retry re-sends everything still dirty after a failed save.
func (m *Manager) Retry(ctx context.Context) error {
	return m.Flush(ctx)
}

// ClearDraft cancels any armed timer and drops the active draft with its
// unsaved edits. A save already in flight completes but no longer touches state.
func (m *Manager) ClearDraft(ctx context.Context) {
	m.mu.Lock()
	prev := m.draftIDLocked()
	m.resetLocked(nil)
	journal := m.journal
	m.mu.Unlock()

	if prev != "" {
		m.purgeJournal(ctx, journal, prev)
	}
}

// Close saves every pending edit and then drops the active draft. Edits that
// arrive while it runs are rejected with ErrDraftClosing. If a save fails the
// draft stays active with its edits and the error is returned.
//
// Unlike ClearDraft the journal is not purged: a successful save has already
// discarded the saved rows, and without a persist function the journal is the
// only copy of the edits.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.doc == nil {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	hasPersist := m.persist != nil
	m.mu.Unlock()

	if hasPersist {
		for m.HasUnsavedChanges() {
			if err := m.Flush(ctx); err != nil {
				m.mu.Lock()
				m.closing = false
				m.mu.Unlock()
				return err
			}
		}
	}

	m.mu.Lock()
	m.resetLocked(nil)
	m.mu.Unlock()
	return nil
}

// Reset is an alias of ClearDraft.
func (m *Manager) Reset(ctx context.Context) {
	m.ClearDraft(ctx)
}

// RestoreDraft replays journaled edits of the active draft as dirty fields and
// schedules a save for them. It returns the number of restored fields.
func (m *Manager) RestoreDraft(ctx context.Context) (int, error) {
	m.mu.Lock()
	if m.tracker == nil {
		m.mu.Unlock()
		return 0, domain.ErrNoActiveDraft
	}
	draftID := m.draftIDLocked()
	journal := m.journal
	m.mu.Unlock()

	if journal == nil {
		return 0, nil
	}
	fields, err := journal.Load(ctx, draftID)
	if err != nil {
		return 0, fmt.Errorf("restore draft %s: %w", draftID, err)
	}
	if len(fields) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil || m.draftIDLocked() != draftID {
		return 0, nil
	}
	now := m.clock.Now()
	for field, value := range fields {
		m.tracker.Restore(field, value, now)
	}
	m.setStatusLocked(domain.SaveStatusIdle)
	m.rescheduleLocked()

	m.logger.Info("draft restored from journal", "draft_id", draftID, "fields", len(fields))
	return len(fields), nil
}

// Hydrate loads server-side values into the document without marking them
// dirty. Fields with unsaved edits keep the edited value.
func (m *Manager) Hydrate(values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return domain.ErrNoActiveDraft
	}
	for field, value := range values {
		if m.tracker.Dirty(field) {
			continue
		}
		m.doc.Fields[field] = value
	}
	return nil
}

// DraftID returns the active draft id, or "" when none is active.
func (m *Manager) DraftID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draftIDLocked()
}

func (m *Manager) Status() domain.SaveStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the error of the most recent failed save, or nil once a
// save succeeds.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Manager) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCount
}

func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics.current
}

// ResetMetrics zeroes the in-process counters.
func (m *Manager) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.reset()
}

// Document returns a copy of the active document.
func (m *Manager) Document() (domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return domain.Document{}, false
	}
	return m.doc.Clone(), true
}

func (m *Manager) DirtyFields() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil {
		return nil
	}
	return m.tracker.DirtyFields()
}

func (m *Manager) DirtyEntries() []domain.DirtyEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil {
		return nil
	}
	return m.tracker.Entries()
}

func (m *Manager) HasUnsavedChanges() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker != nil && m.tracker.HasChanges()
}

// Saving reports whether a persist call is outstanding.
func (m *Manager) Saving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

func (m *Manager) draftIDLocked() string {
	if m.doc == nil {
		return ""
	}
	return m.doc.DraftID
}

func (m *Manager) resetLocked(doc *domain.Document) {
	if m.doc != nil {
		// watchers of the previous draft are done
		m.subs.closeAll()
	}
	m.sched.invalidate()
	m.epoch++
	m.doc = doc
	m.tracker = nil
	if doc != nil {
		m.tracker = domain.NewDirtyFieldTracker(doc, m.policies)
	}
	m.retryCount = 0
	m.lastError = nil
	m.closing = false
	if m.backoff != nil {
		m.backoff.Reset()
	}
	m.setStatusLocked(domain.SaveStatusIdle)
}

func (m *Manager) setStatusLocked(s domain.SaveStatus) {
	if m.status == s {
		return
	}
	m.status = s
	ev := StatusEvent{
		DraftID:    m.draftIDLocked(),
		Status:     s,
		RetryCount: m.retryCount,
		At:         m.clock.Now(),
	}
	if m.lastError != nil {
		ev.LastError = m.lastError.Error()
	}
	m.subs.publish(ev)
}

// mirrorField writes the current value of a dirty field to the journal. The
// value is read inside the journal order, so the last write always carries the
// newest edit. A field that is no longer dirty loses its row instead.
func (m *Manager) mirrorField(ctx context.Context, journal contracts.Journal, draftID, field string) {
	m.journalMu.Lock()
	defer m.journalMu.Unlock()

	m.mu.Lock()
	if m.tracker == nil || m.draftIDLocked() != draftID {
		m.mu.Unlock()
		return
	}
	dirty := m.tracker.Dirty(field)
	value, _ := m.doc.Value(field)
	m.mu.Unlock()

	var err error
	if dirty {
		err = journal.Put(ctx, draftID, map[string]any{field: value})
	} else {
		err = journal.Discard(ctx, draftID, []string{field})
	}
	if err != nil {
		m.logger.Warn("journal write failed", "draft_id", draftID, "field", field, "error", err)
	}
}

// discardSaved removes the journal rows of saved fields. Fields edited again
// since the save are still dirty and keep their rows.
func (m *Manager) discardSaved(ctx context.Context, journal contracts.Journal, draftID string, saved []string) {
	m.journalMu.Lock()
	defer m.journalMu.Unlock()

	m.mu.Lock()
	if m.tracker == nil || m.draftIDLocked() != draftID {
		m.mu.Unlock()
		return
	}
	clean := make([]string, 0, len(saved))
	for _, f := range saved {
		if !m.tracker.Dirty(f) {
			clean = append(clean, f)
		}
	}
	m.mu.Unlock()

	if len(clean) == 0 {
		return
	}
	if err := journal.Discard(ctx, draftID, clean); err != nil {
		m.logger.Warn("journal discard failed", "draft_id", draftID, "error", err)
	}
}

func (m *Manager) purgeJournal(ctx context.Context, journal contracts.Journal, draftID string) {
	if journal == nil {
		return
	}
	m.journalMu.Lock()
	defer m.journalMu.Unlock()
	if err := journal.Purge(ctx, draftID); err != nil {
		m.logger.Warn("journal purge failed", "draft_id", draftID, "error", err)
	}
}
