package autosave

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
)

// ComputeDebounce picks the quiet period to wait before saving the given dirty set.
//
// An empty set yields domain.DefaultDebounce. Otherwise the shortest field
// window wins, and any urgent field caps the result at domain.UrgentDebounceCap.
// The cap only ever lowers the window.
func ComputeDebounce(entries []domain.DirtyEntry) time.Duration {
	if len(entries) == 0 {
		return domain.DefaultDebounce
	}

	window := entries[0].Policy.Debounce
	urgent := false
	for _, e := range entries {
		if e.Policy.Debounce < window {
			window = e.Policy.Debounce
		}
		if e.Policy.Urgent() {
			urgent = true
		}
	}
	if urgent && window > domain.UrgentDebounceCap {
		window = domain.UrgentDebounceCap
	}
	return window
}

// scheduler owns the single debounce timer. Every arm bumps the generation;
// a timer callback carrying an older generation is stale and must do nothing.
//
// Guarded by Manager.mu.
type scheduler struct {
	clock      clock.Clock
	timer      clock.Timer
	generation uint64
}

func (s *scheduler) arm(d time.Duration, fire func(gen uint64)) {
	s.stop()
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(d, func() { fire(gen) })
}

func (s *scheduler) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// invalidate cancels the armed timer and makes any callback already in flight stale.
func (s *scheduler) invalidate() {
	s.stop()
	s.generation++
}

func (s *scheduler) current(gen uint64) bool {
	return gen == s.generation
}

// claim marks the timer for gen as fired. It returns false for a stale callback.
func (s *scheduler) claim(gen uint64) bool {
	if gen != s.generation {
		return false
	}
	s.timer = nil
	return true
}

func (s *scheduler) armed() bool {
	return s.timer != nil
}

// ScheduleSave arms (or re-arms) the debounce timer using the window computed
// from the current dirty set. persist becomes the function used by later edits
// and by Flush.
func (m *Manager) ScheduleSave(persist PersistFunc) error {
	if persist == nil {
		return domain.ErrNoPersister
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persist = persist
	m.rescheduleLocked()
	return nil
}

func (m *Manager) rescheduleLocked() {
	if m.persist == nil {
		return
	}
	var entries []domain.DirtyEntry
	if m.tracker != nil {
		entries = m.tracker.Entries()
	}
	m.armLocked(ComputeDebounce(entries), m.persist)
}

func (m *Manager) armLocked(d time.Duration, persist PersistFunc) {
	m.sched.arm(d, func(gen uint64) { m.fire(gen, persist) })
}

// fire runs when a debounce timer elapses. Errors are recorded, never returned:
// there is no caller waiting on a timer.
func (m *Manager) fire(gen uint64, persist PersistFunc) {
	m.mu.Lock()
	if !m.sched.claim(gen) {
		m.mu.Unlock()
		return
	}
	if delay := m.rateDelayLocked(); delay > 0 {
		m.logger.Debug("autosave deferred by rate limit", "draft_id", m.draftIDLocked(), "delay", delay)
		m.armLocked(delay, persist)
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	m.mu.Unlock()

	err := m.batchSave(context.Background(), persist, func() bool { return m.sched.current(gen) })
	if err == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch == m.epoch {
		m.scheduleRetryLocked(persist)
	}
}

func (m *Manager) rateDelayLocked() time.Duration {
	if m.limiter == nil {
		return 0
	}
	now := m.clock.Now()
	r := m.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	d := r.DelayFrom(now)
	if d > 0 {
		r.CancelAt(now)
	}
	return d
}

// scheduleRetryLocked re-arms the timer after a failed scheduled save, backing
// off exponentially until the retry budget is spent. A fresh edit that already
// re-armed the timer takes precedence.
func (m *Manager) scheduleRetryLocked(persist PersistFunc) {
	if m.backoff == nil || m.status != domain.SaveStatusError || m.sched.armed() {
		return
	}
	if m.retryCount > m.retry.MaxRetries {
		m.logger.Error("autosave retries exhausted",
			"draft_id", m.draftIDLocked(),
			"retries", m.retryCount,
			"error", m.lastError,
		)
		return
	}
	d := m.backoff.NextBackOff()
	if d == backoff.Stop {
		return
	}
	m.logger.Info("autosave retry scheduled", "draft_id", m.draftIDLocked(), "attempt", m.retryCount+1, "delay", d)
	m.armLocked(d, persist)
}
