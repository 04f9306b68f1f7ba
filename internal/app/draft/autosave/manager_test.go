package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
)

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	calls []map[string]any
	err   error
}

func (r *recorder) persist(_ context.Context, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fields)
	return r.err
}

func (r *recorder) failWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *recorder) Calls() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestManager(t *testing.T, opts Options) (*Manager, *clock.FakeClock, *recorder) {
	t.Helper()
	clk := clock.NewFake(testStart)
	rec := &recorder{}
	if opts.Policies == nil {
		opts.Policies = domain.EventEditorPolicies()
	}
	opts.Clock = clk
	if opts.Persist == nil {
		opts.Persist = rec.persist
	}
	return New(opts), clk, rec
}

func TestUpdateField_TitleAndMarketCoalesceIntoOneSave(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})

	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.Hydrate(map[string]any{domain.FieldTitle: "A", domain.FieldMarket: ""}))

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	clk.Advance(200 * time.Millisecond)
	require.NoError(t, m.UpdateField(ctx, domain.FieldMarket, "miami"))

	clk.Advance(1499 * time.Millisecond)
	assert.Empty(t, rec.Calls())
	assert.Equal(t, domain.SaveStatusIdle, m.Status())

	clk.Advance(time.Millisecond)
	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{domain.FieldTitle: "Hello", domain.FieldMarket: "miami"}, calls[0])
	assert.Equal(t, domain.SaveStatusSaved, m.Status())
	assert.False(t, m.HasUnsavedChanges())

	clk.Advance(10 * time.Second)
	assert.Len(t, rec.Calls(), 1)
}

func TestUpdateField_DocumentReflectsEditBeforeSave(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldVenue, "The Fillmore"))

	doc, ok := m.Document()
	require.True(t, ok)
	assert.Equal(t, "The Fillmore", doc.Fields[domain.FieldVenue])
	assert.Equal(t, []string{domain.FieldVenue}, m.DirtyFields())
	assert.Empty(t, rec.Calls())
}

func TestUpdateField_SameValueDoesNotReschedule(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	clk.Advance(2 * time.Second)
	require.Len(t, rec.Calls(), 1)
	require.Equal(t, 0, clk.Pending())

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	assert.Equal(t, 0, clk.Pending())
	assert.Empty(t, m.DirtyFields())
	assert.Equal(t, domain.SaveStatusSaved, m.Status())

	clk.Advance(5 * time.Second)
	assert.Len(t, rec.Calls(), 1)
}

func TestUpdateField_RapidEditsPushTheWindowBack(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	for _, v := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		require.NoError(t, m.UpdateField(ctx, domain.FieldDescription, v))
		clk.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, rec.Calls())
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(1500 * time.Millisecond)
	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{domain.FieldDescription: "Hello"}, calls[0])
}

func TestUpdateField_Errors(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{})

	assert.ErrorIs(t, m.UpdateField(ctx, "", "x"), domain.ErrEmptyFieldName)
	assert.ErrorIs(t, m.UpdateField(ctx, domain.FieldTitle, "x"), domain.ErrNoActiveDraft)
}

func TestBatchSave_FailureKeepsDirtyEntries(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")
	rec.failWith(errors.New("network error"))

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	before := m.DirtyEntries()

	clk.Advance(2 * time.Second)

	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, domain.SaveStatusError, m.Status())
	require.Error(t, m.LastError())
	assert.Equal(t, "network error", m.LastError().Error())
	assert.Equal(t, 1, m.RetryCount())
	assert.Equal(t, before, m.DirtyEntries())
	assert.Equal(t, int64(1), m.Metrics().FailedSaves)
	assert.Equal(t, 0, clk.Pending(), "retries are off by default")
}

func TestBatchSave_ReturnsSaveError(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")
	cause := errors.New("validation failed")
	rec.failWith(cause)

	require.NoError(t, m.UpdateField(ctx, domain.FieldPrice, "12.50"))
	err := m.BatchSave(ctx, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "draft-1", saveErr.DraftID)
	assert.Equal(t, 1, saveErr.Attempt)
	assert.Equal(t, []string{domain.FieldPrice}, saveErr.Fields)
}

func TestBatchSave_RetryPayloadIsSuperset(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")
	rec.failWith(errors.New("network error"))

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	require.NoError(t, m.UpdateField(ctx, domain.FieldTags, []string{"jazz"}))
	clk.Advance(2 * time.Second)
	require.Equal(t, domain.SaveStatusError, m.Status())

	rec.failWith(nil)
	require.NoError(t, m.UpdateField(ctx, domain.FieldMarket, "miami"))
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	require.NoError(t, m.Retry(ctx))

	calls := rec.Calls()
	require.Len(t, calls, 2)
	for field, value := range calls[0] {
		assert.Equal(t, value, calls[1][field])
	}
	assert.Equal(t, "miami", calls[1][domain.FieldMarket])
	assert.Equal(t, 0, m.RetryCount())
	assert.NoError(t, m.LastError())
	assert.Equal(t, domain.SaveStatusSaved, m.Status())
}

func TestBatchSave_EmptySnapshotIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	events, cancel := m.Subscribe(4)
	defer cancel()

	require.NoError(t, m.BatchSave(ctx, nil))
	assert.Empty(t, rec.Calls())
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	assert.Empty(t, events)
}

func TestBatchSave_AtMostOneInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan map[string]any, 4)
	var calls atomic.Int32
	persist := func(_ context.Context, fields map[string]any) error {
		calls.Add(1)
		started <- fields
		<-release
		return nil
	}
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "one"))

	errs := make(chan error, 2)
	go func() { errs <- m.BatchSave(ctx, nil) }()
	first := <-started
	assert.Equal(t, map[string]any{domain.FieldTitle: "one"}, first)
	assert.True(t, m.Saving())
	assert.Equal(t, domain.SaveStatusSaving, m.Status())

	go func() { errs <- m.BatchSave(ctx, nil) }()
	assert.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, m.UpdateField(ctx, domain.FieldMarket, "miami"))
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	close(release)

	second := <-started
	assert.Equal(t, map[string]any{domain.FieldMarket: "miami"}, second)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, m.HasUnsavedChanges())
	assert.Equal(t, domain.SaveStatusSaved, m.Status())
}

func TestBatchSave_WaiterHonoursContext(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var calls atomic.Int32
	persist := func(_ context.Context, _ map[string]any) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return errors.New("boom")
	}
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "one"))

	firstErr := make(chan error, 1)
	go func() { firstErr <- m.BatchSave(ctx, nil) }()
	<-started

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.BatchSave(waitCtx, nil), context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	require.Error(t, <-firstErr)
	assert.Equal(t, domain.SaveStatusError, m.Status())
}

func TestBatchSave_EditsDuringSaveStayDirty(t *testing.T) {
	ctx := context.Background()
	var m *Manager
	persist := func(ctx context.Context, _ map[string]any) error {
		return m.UpdateField(ctx, domain.FieldTitle, "newer")
	}
	m, clk, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "older"))
	require.NoError(t, m.UpdateField(ctx, domain.FieldCategory, "music"))
	require.NoError(t, m.Flush(ctx))

	assert.Equal(t, []string{domain.FieldTitle}, m.DirtyFields())
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	assert.Equal(t, 1, clk.Pending())
}

func TestInitializeDraft_SwitchResetsState(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})

	assert.Equal(t, "draft-1", m.InitializeDraft(ctx, "draft-1"))
	rec.failWith(errors.New("offline"))
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "lost"))
	require.Error(t, m.GoToStep(ctx, 3))
	require.Equal(t, domain.SaveStatusError, m.Status())
	rec.failWith(nil)

	assert.Equal(t, "draft-2", m.InitializeDraft(ctx, "draft-2"))
	assert.Empty(t, m.DirtyFields())
	doc, ok := m.Document()
	require.True(t, ok)
	assert.Equal(t, "draft-2", doc.DraftID)
	assert.Empty(t, doc.Fields)
	assert.Zero(t, doc.CurrentStep)
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	assert.Zero(t, m.RetryCount())
	assert.NoError(t, m.LastError())

	clk.Advance(10 * time.Second)
	assert.Len(t, rec.Calls(), 1)
}

func TestInitializeDraft_SwitchDropsUnsavedEditsWithoutSaving(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})

	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "lost"))
	m.InitializeDraft(ctx, "draft-2")

	clk.Advance(10 * time.Second)
	assert.Empty(t, rec.Calls())
}

func TestInitializeDraft_SameIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{})

	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "kept"))
	m.InitializeDraft(ctx, "draft-1")

	assert.Equal(t, []string{domain.FieldTitle}, m.DirtyFields())
}

func TestInitializeDraft_EmptyIDGeneratesOne(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	id := m.InitializeDraft(context.Background(), "")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, m.DraftID())
}

func TestClearDraft_CancelsArmedTimer(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	require.Equal(t, 1, clk.Pending())

	m.ClearDraft(ctx)
	assert.Equal(t, 0, clk.Pending())
	assert.Empty(t, m.DraftID())

	clk.Advance(10 * time.Second)
	assert.Empty(t, rec.Calls())
	_, ok := m.Document()
	assert.False(t, ok)
}

func TestStaleSaveAfterSwitchDoesNotTouchNewDraft(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	persist := func(_ context.Context, _ map[string]any) error {
		started <- struct{}{}
		<-release
		return errors.New("late failure")
	}
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))

	errs := make(chan error, 1)
	go func() { errs <- m.Flush(ctx) }()
	<-started

	m.InitializeDraft(ctx, "draft-2")
	close(release)
	require.Error(t, <-errs)

	assert.Equal(t, "draft-2", m.DraftID())
	assert.Equal(t, domain.SaveStatusIdle, m.Status())
	assert.Zero(t, m.RetryCount())
	assert.NoError(t, m.LastError())
	assert.Equal(t, int64(1), m.Metrics().FailedSaves)
}

func TestScheduleSave_ReplacesPersist(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	other := &recorder{}
	require.ErrorIs(t, m.ScheduleSave(nil), domain.ErrNoPersister)
	require.NoError(t, m.ScheduleSave(other.persist))

	require.NoError(t, m.UpdateField(ctx, domain.FieldCategory, "comedy"))
	clk.Advance(1500 * time.Millisecond)

	assert.Empty(t, rec.Calls())
	assert.Len(t, other.Calls(), 1)
}

func TestFlush_WithoutPersist(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Clock: clock.NewFake(testStart)})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "x"))
	assert.ErrorIs(t, m.Flush(ctx), domain.ErrNoPersister)
	assert.ErrorIs(t, m.BatchSave(ctx, nil), domain.ErrNoPersister)
	assert.NoError(t, m.GoToStep(ctx, 2))
}

func TestGoToStep_FlushesPendingEdits(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldDescription, "Long text"))
	require.NoError(t, m.GoToStep(ctx, 2))

	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, 0, clk.Pending())
	doc, _ := m.Document()
	assert.Equal(t, 2, doc.CurrentStep)
	assert.ErrorIs(t, New(Options{}).GoToStep(ctx, 1), domain.ErrNoActiveDraft)
}

func TestHydrate_DoesNotDirtyOrOverrideEdits(t *testing.T) {
	ctx := context.Background()
	m, clk, _ := newTestManager(t, Options{})
	assert.ErrorIs(t, m.Hydrate(map[string]any{"x": 1}), domain.ErrNoActiveDraft)

	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "local"))
	require.NoError(t, m.Hydrate(map[string]any{
		domain.FieldTitle: "server",
		domain.FieldVenue: "Blue Note",
	}))

	doc, _ := m.Document()
	assert.Equal(t, "local", doc.Fields[domain.FieldTitle])
	assert.Equal(t, "Blue Note", doc.Fields[domain.FieldVenue])
	assert.Equal(t, []string{domain.FieldTitle}, m.DirtyFields())
	assert.Equal(t, 1, clk.Pending())
}

func TestRetryPolicy_BacksOffUntilExhausted(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{
		Retry: RetryPolicy{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
		},
	})
	m.InitializeDraft(ctx, "draft-1")
	rec.failWith(errors.New("unavailable"))

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	clk.Advance(2 * time.Second)
	require.Len(t, rec.Calls(), 1)
	require.Equal(t, 1, clk.Pending())

	clk.Advance(100 * time.Millisecond)
	require.Len(t, rec.Calls(), 2)

	clk.Advance(199 * time.Millisecond)
	require.Len(t, rec.Calls(), 2)
	clk.Advance(time.Millisecond)
	require.Len(t, rec.Calls(), 3)

	assert.Equal(t, 3, m.RetryCount())
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(time.Minute)
	assert.Len(t, rec.Calls(), 3)
	assert.Equal(t, domain.SaveStatusError, m.Status())
}

func TestRetryPolicy_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	var failures atomic.Int32
	failures.Store(1)
	persist := func(_ context.Context, _ map[string]any) error {
		if failures.Add(-1) >= 0 {
			return errors.New("flaky")
		}
		return nil
	}
	m, clk, _ := newTestManager(t, Options{
		Persist: persist,
		Retry:   RetryPolicy{MaxRetries: 3, InitialInterval: 50 * time.Millisecond},
	})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))
	clk.Advance(2 * time.Second)
	assert.Equal(t, domain.SaveStatusError, m.Status())

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, domain.SaveStatusSaved, m.Status())
	assert.Zero(t, m.RetryCount())
}

func TestSaveRate_DefersTimerDrivenSaves(t *testing.T) {
	ctx := context.Background()
	m, clk, rec := newTestManager(t, Options{
		SaveRate:  rate.Every(10 * time.Second),
		SaveBurst: 1,
	})
	m.InitializeDraft(ctx, "draft-1")

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "one"))
	clk.Advance(2 * time.Second)
	require.Len(t, rec.Calls(), 1)

	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "two"))
	clk.Advance(2 * time.Second)
	assert.Len(t, rec.Calls(), 1)
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(5 * time.Second)
	assert.Len(t, rec.Calls(), 1)

	clk.Advance(4 * time.Second)
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "two", calls[1][domain.FieldTitle])
}

func TestSaveTimeout_BoundsPersist(t *testing.T) {
	ctx := context.Background()
	persist := func(ctx context.Context, _ map[string]any) error {
		<-ctx.Done()
		return ctx.Err()
	}
	m, _, _ := newTestManager(t, Options{Persist: persist, SaveTimeout: 10 * time.Millisecond})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))

	err := m.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.SaveStatusError, m.Status())
	assert.True(t, m.HasUnsavedChanges())
}

func TestPersistPanicBecomesError(t *testing.T) {
	ctx := context.Background()
	persist := func(context.Context, map[string]any) error { panic("boom") }
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))

	err := m.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist panicked: boom")
	assert.False(t, m.Saving())
	assert.Equal(t, domain.SaveStatusError, m.Status())
}

func TestPersistReceivesCopy(t *testing.T) {
	ctx := context.Background()
	persist := func(_ context.Context, fields map[string]any) error {
		fields["injected"] = true
		return errors.New("fail")
	}
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "Hello"))

	require.Error(t, m.Flush(ctx))
	assert.Equal(t, []string{domain.FieldTitle}, m.DirtyFields())
}

func TestClose_SavesEditsMadeDuringInFlightSave(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var mu sync.Mutex
	var saved []map[string]any
	persist := func(_ context.Context, fields map[string]any) error {
		started <- struct{}{}
		<-release
		mu.Lock()
		defer mu.Unlock()
		saved = append(saved, fields)
		return nil
	}
	m, _, _ := newTestManager(t, Options{Persist: persist})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "one"))

	flushed := make(chan error, 1)
	go func() { flushed <- m.Flush(ctx) }()
	<-started
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "two"))

	closed := make(chan error, 1)
	go func() { closed <- m.Close(ctx) }()
	require.Eventually(t, func() bool {
		// an unchanged value is a no-op until the draft starts closing
		return errors.Is(m.UpdateField(ctx, domain.FieldTitle, "two"), domain.ErrDraftClosing)
	}, time.Second, time.Millisecond)

	close(release)
	require.NoError(t, <-flushed)
	require.NoError(t, <-closed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []map[string]any{
		{domain.FieldTitle: "one"},
		{domain.FieldTitle: "two"},
	}, saved)
	assert.Empty(t, m.DraftID())
}

func TestClose_FailureKeepsDraftEditable(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(t, Options{})
	m.InitializeDraft(ctx, "draft-1")
	require.NoError(t, m.UpdateField(ctx, domain.FieldTitle, "one"))

	rec.failWith(errors.New("offline"))
	require.Error(t, m.Close(ctx))
	assert.Equal(t, "draft-1", m.DraftID())
	assert.Equal(t, []string{domain.FieldTitle}, m.DirtyFields())
	assert.NoError(t, m.UpdateField(ctx, domain.FieldVenue, "Blue Note"))
}
