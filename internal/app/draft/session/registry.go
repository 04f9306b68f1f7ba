// Package session hosts one autosave.Manager per open draft.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// PersistFactory returns the persist function for one draft.
type PersistFactory func(draftID string) autosave.PersistFunc

// Registry maps draft ids to their Managers. Drafts are isolated from each
// other: every Open creates a Manager of its own.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*autosave.Manager
	opening  singleflight.Group

	base       autosave.Options
	persistFor PersistFactory
	readModel  contracts.ReadModel
	logger     *slog.Logger
}

// NewRegistry creates a registry. base is copied into every Manager, with
// Persist replaced by persistFor(draftID). readModel may be nil, in which case
// sessions start from an empty document.
func NewRegistry(base autosave.Options, persistFor PersistFactory, readModel contracts.ReadModel) *Registry {
	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:   make(map[string]*autosave.Manager),
		base:       base,
		persistFor: persistFor,
		readModel:  readModel,
		logger:     logger.With("component", "session"),
	}
}

// Open returns the Manager of draftID, creating it on first use. A new session
// is hydrated from the read model and then replays any journaled edits.
// An empty draftID opens a brand-new draft under a generated id.
//
// Concurrent opens of one id share a single build, and the registry lock is
// only held to publish the result.
func (r *Registry) Open(ctx context.Context, draftID string) (*autosave.Manager, error) {
	if draftID != "" {
		if m, ok := r.Get(draftID); ok {
			return m, nil
		}
	} else {
		draftID = uuid.NewString()
	}

	v, err, _ := r.opening.Do(draftID, func() (any, error) {
		if m, ok := r.Get(draftID); ok {
			return m, nil
		}
		m, err := r.build(ctx, draftID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[draftID] = m
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*autosave.Manager), nil
}

func (r *Registry) build(ctx context.Context, draftID string) (*autosave.Manager, error) {
	opts := r.base
	if r.persistFor != nil {
		opts.Persist = r.persistFor(draftID)
	}
	m := autosave.New(opts)
	m.InitializeDraft(ctx, draftID)

	if r.readModel != nil {
		stored, err := r.readModel.GetDraft(ctx, draftID)
		switch {
		case errors.Is(err, domain.ErrDraftNotFound):
		case err != nil:
			return nil, fmt.Errorf("open draft %s: %w", draftID, err)
		default:
			if err := m.Hydrate(stored.Fields); err != nil {
				return nil, err
			}
		}
	}

	restored, err := m.RestoreDraft(ctx)
	if err != nil {
		r.logger.Warn("journal restore failed", "draft_id", draftID, "error", err)
	}
	r.logger.Info("session opened", "draft_id", draftID, "restored_fields", restored)
	return m, nil
}

// Get returns the Manager of an open draft.
func (r *Registry) Get(draftID string) (*autosave.Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.sessions[draftID]
	return m, ok
}

// Close saves every pending edit of draftID and drops its session. Edits sent
// to the session while it closes are rejected. If a save fails the session
// stays open so the edits are not lost, and the error is returned.
func (r *Registry) Close(ctx context.Context, draftID string) error {
	m, ok := r.Get(draftID)
	if !ok {
		return domain.ErrDraftNotFound
	}

	if err := m.Close(ctx); err != nil {
		return fmt.Errorf("close draft %s: %w", draftID, err)
	}

	r.mu.Lock()
	if r.sessions[draftID] == m {
		delete(r.sessions, draftID)
	}
	r.mu.Unlock()

	r.logger.Info("session closed", "draft_id", draftID)
	return nil
}

// Discard drops draftID without saving. Its unsaved edits and journal are lost.
func (r *Registry) Discard(ctx context.Context, draftID string) error {
	r.mu.Lock()
	m, ok := r.sessions[draftID]
	delete(r.sessions, draftID)
	r.mu.Unlock()
	if !ok {
		return domain.ErrDraftNotFound
	}

	m.ClearDraft(ctx)
	r.logger.Info("session discarded", "draft_id", draftID)
	return nil
}

// Shutdown saves and closes every open draft. Drafts whose save fails keep
// their journal so the next process can restore them.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*autosave.Manager)
	r.mu.Unlock()

	var errs []error
	for id, m := range sessions {
		if err := m.Close(ctx); err != nil {
			r.logger.Error("flush on shutdown failed", "draft_id", id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IDs returns the open draft ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
