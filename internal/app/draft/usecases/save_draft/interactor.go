package save_draft

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/usecases/shared"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
	commitplan "github.com/murkotick/draft-autosave-service/internal/pkg/committer"
)

// Request is one partial patch of a draft.
type Request struct {
	DraftID string
	Fields  map[string]any
}

// Interactor writes a partial patch and its outbox event in one commit.
type Interactor struct {
	DraftRepo  contracts.DraftRepo
	OutboxRepo contracts.OutboxRepo
	Committer  contracts.Committer
	Clock      clock.Clock
}

func NewInteractor(repo contracts.DraftRepo, outboxRepo contracts.OutboxRepo, committer contracts.Committer, clk clock.Clock) *Interactor {
	return &Interactor{
		DraftRepo:  repo,
		OutboxRepo: outboxRepo,
		Committer:  committer,
		Clock:      clk,
	}
}

func (it *Interactor) Execute(ctx context.Context, req Request) error {
	if req.DraftID == "" {
		return domain.ErrEmptyDraftID
	}
	if len(req.Fields) == 0 {
		return nil
	}
	now := it.Clock.Now()

	// 1. Field upserts
	muts, err := it.DraftRepo.PatchMuts(req.DraftID, req.Fields, now)
	if err != nil {
		return err
	}

	plan := commitplan.NewPlan()
	plan.Add(muts...)

	// 2. Outbox event
	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	ev := &domain.DraftFieldsSavedEvent{DraftID: req.DraftID, Fields: names, SavedAt: now}
	payload, err := shared.MarshalDomainEventPayload(ev)
	if err != nil {
		return err
	}
	outboxMut, err := it.OutboxRepo.InsertMut(&contracts.OutboxEvent{
		EventID:      uuid.New().String(),
		EventType:    ev.EventType(),
		AggregateID:  ev.AggregateID(),
		PayloadJSON:  payload,
		Status:       contracts.OutboxStatusPending,
		CreatedAtUTC: now,
	})
	if err != nil {
		return err
	}
	plan.Add(outboxMut)

	// 3. Apply via committer
	return it.Committer.Apply(ctx, plan)
}

// PersistFor binds the interactor to one draft as an autosave persist function.
func (it *Interactor) PersistFor(draftID string) func(ctx context.Context, fields map[string]any) error {
	return func(ctx context.Context, fields map[string]any) error {
		return it.Execute(ctx, Request{DraftID: draftID, Fields: fields})
	}
}
