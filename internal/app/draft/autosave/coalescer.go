package autosave

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// pendingSave is the single outstanding persist call. done is closed once the
// outcome has been applied to the manager's state.
type pendingSave struct {
	done     chan struct{}
	draftID  string
	epoch    uint64
	snapshot domain.Snapshot
	attempt  int
}

// BatchSave sends every dirty field in one persist call and returns its error.
// A nil persist uses the configured one.
//
// If a save is already in flight, BatchSave waits for it (ignoring its outcome)
// and then saves whatever is still dirty. An empty dirty set returns nil
// without calling persist or touching the status.
func (m *Manager) BatchSave(ctx context.Context, persist PersistFunc) error {
	if persist == nil {
		m.mu.Lock()
		persist = m.persist
		m.mu.Unlock()
	}
	if persist == nil {
		return domain.ErrNoPersister
	}
	return m.batchSave(ctx, persist, nil)
}

// batchSave is BatchSave with an optional stillWanted predicate, evaluated under
// the lock after any in-flight save resolves. Timer-driven saves use it to drop
// out when a newer timer or a reset superseded them.
func (m *Manager) batchSave(ctx context.Context, persist PersistFunc, stillWanted func() bool) error {
	m.mu.Lock()
	for m.pending != nil {
		done := m.pending.done
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
	}

	if stillWanted != nil && !stillWanted() {
		m.mu.Unlock()
		return nil
	}
	if m.tracker == nil {
		m.mu.Unlock()
		return nil
	}
	snapshot := m.tracker.DirtySnapshot()
	if snapshot.IsEmpty() {
		m.mu.Unlock()
		return nil
	}

	p := &pendingSave{
		done:     make(chan struct{}),
		draftID:  m.draftIDLocked(),
		epoch:    m.epoch,
		snapshot: snapshot,
		attempt:  m.retryCount + 1,
	}
	m.pending = p
	m.setStatusLocked(domain.SaveStatusSaving)
	m.mu.Unlock()

	start := m.clock.Now()
	err := m.invokePersist(ctx, persist, p)
	return m.complete(ctx, p, m.clock.Now().Sub(start), err)
}

func (m *Manager) invokePersist(ctx context.Context, persist PersistFunc, p *pendingSave) (err error) {
	if m.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.saveTimeout)
		defer cancel()
	}

	ctx, span := m.tracer.Start(ctx, "draft.save", trace.WithAttributes(
		attribute.String("draft.id", p.draftID),
		attribute.Int("draft.fields", p.snapshot.Len()),
		attribute.Int("draft.attempt", p.attempt),
	))
	defer span.End()

	m.metrics.addInflight(ctx, 1)
	defer m.metrics.addInflight(ctx, -1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persist panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	payload := make(map[string]any, len(p.snapshot.Fields))
	for field, value := range p.snapshot.Fields {
		payload[field] = value
	}
	return persist(ctx, payload)
}

// complete applies the outcome of p. Only the fields captured in p's snapshot
// are cleared on success; edits made while it was in flight stay dirty.
func (m *Manager) complete(ctx context.Context, p *pendingSave, d time.Duration, err error) error {
	m.mu.Lock()
	if m.pending == p {
		m.pending = nil
	}
	stale := p.epoch != m.epoch

	var cleared []string
	if err == nil {
		m.metrics.recordSuccess(ctx, d, p.snapshot.Len())
		if !stale {
			cleared = m.tracker.ClearSnapshot(p.snapshot)
			m.retryCount = 0
			m.lastError = nil
			if m.backoff != nil {
				m.backoff.Reset()
			}
			if m.tracker.HasChanges() {
				m.setStatusLocked(domain.SaveStatusIdle)
				if !m.sched.armed() {
					m.rescheduleLocked()
				}
			} else {
				m.setStatusLocked(domain.SaveStatusSaved)
			}
		}
	} else {
		m.metrics.recordFailure(ctx, d)
		if !stale {
			m.retryCount++
			m.lastError = err
			m.setStatusLocked(domain.SaveStatusError)
		}
	}
	close(p.done)
	journal := m.journal
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("draft save failed",
			"draft_id", p.draftID,
			"attempt", p.attempt,
			"fields", p.snapshot.Len(),
			"stale", stale,
			"error", err,
		)
		return &SaveError{DraftID: p.draftID, Attempt: p.attempt, Fields: p.snapshot.FieldNames(), Err: err}
	}

	m.logger.Debug("draft saved", "draft_id", p.draftID, "fields", p.snapshot.Len(), "duration", d, "stale", stale)
	if journal != nil && len(cleared) > 0 {
		m.discardSaved(ctx, journal, p.draftID, cleared)
	}
	return nil
}
