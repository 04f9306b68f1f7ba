package draft

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	draftv1 "github.com/murkotick/draft-autosave-service/proto/draft/v1"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/queries/get_draft"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/session"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []map[string]any
	err   error
}

func (s *fakeStore) persistFor(string) autosave.PersistFunc {
	return func(_ context.Context, fields map[string]any) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return s.err
		}
		s.saved = append(s.saved, fields)
		return nil
	}
}

func (s *fakeStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeStore) calls() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.saved...)
}

type fakeReadModel struct{}

func (fakeReadModel) GetDraft(_ context.Context, id string) (*dto.DraftDTO, error) {
	if id != "stored" {
		return nil, domain.ErrDraftNotFound
	}
	ts := "2026-05-01T10:00:00Z"
	return &dto.DraftDTO{
		DraftID:   id,
		Fields:    map[string]any{domain.FieldTitle: "Saved title", domain.FieldTags: []any{"jazz"}},
		UpdatedAt: &ts,
	}, nil
}

func newTestClient(t *testing.T) (*draftv1.DraftServiceClient, *fakeStore) {
	t.Helper()

	store := &fakeStore{}
	base := autosave.Options{
		Policies: domain.EventEditorPolicies(),
		Clock:    clock.NewFake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)),
	}
	rm := fakeReadModel{}
	registry := session.NewRegistry(base, store.persistFor, rm)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	draftv1.RegisterDraftServiceServer(srv, NewHandler(registry, get_draft.NewHandler(rm)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return draftv1.NewDraftServiceClient(conn), store
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestHandler_EditAndFlush(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient(t)

	opened, err := c.InitializeDraft(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1"}))
	require.NoError(t, err)
	assert.Equal(t, "draft-1", opened.Fields["draft_id"].GetStringValue())
	assert.Equal(t, "idle", opened.Fields["status"].GetStringValue())

	got, err := c.UpdateField(ctx, mustStruct(t, map[string]any{
		"draft_id": "draft-1",
		"field":    domain.FieldTitle,
		"value":    "Jazz night",
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{domain.FieldTitle}, got.Fields["dirty_fields"].GetListValue().AsSlice())

	got, err = c.Flush(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1"}))
	require.NoError(t, err)
	assert.Equal(t, "saved", got.Fields["status"].GetStringValue())
	assert.Empty(t, got.Fields["dirty_fields"].GetListValue().GetValues())
	assert.Equal(t, float64(1), got.Fields["metrics"].GetStructValue().Fields["total_saves"].GetNumberValue())
	assert.Equal(t, []map[string]any{{domain.FieldTitle: "Jazz night"}}, store.calls())
}

func TestHandler_InitializeGeneratesID(t *testing.T) {
	c, _ := newTestClient(t)

	got, err := c.InitializeDraft(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Fields["draft_id"].GetStringValue())
}

func TestHandler_InitializeHydratesStoredDraft(t *testing.T) {
	c, _ := newTestClient(t)

	got, err := c.InitializeDraft(context.Background(), mustStruct(t, map[string]any{"draft_id": "stored"}))
	require.NoError(t, err)
	fields := got.Fields["fields"].GetStructValue().AsMap()
	assert.Equal(t, "Saved title", fields[domain.FieldTitle])
	assert.Empty(t, got.Fields["dirty_fields"].GetListValue().GetValues())
}

func TestHandler_Validation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	_, err := c.InitializeDraft(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{
			name: "missing draft id",
			call: func() error {
				_, err := c.Flush(ctx, &structpb.Struct{})
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "missing field",
			call: func() error {
				_, err := c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "value": "x"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "missing value",
			call: func() error {
				_, err := c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "field": "title"}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "fractional step",
			call: func() error {
				_, err := c.GoToStep(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "step": 1.5}))
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "unknown draft",
			call: func() error {
				_, err := c.GetStatus(ctx, mustStruct(t, map[string]any{"draft_id": "nope"}))
				return err
			},
			code: codes.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestHandler_FailedSaveIsUnavailable(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient(t)
	req := mustStruct(t, map[string]any{"draft_id": "draft-1"})
	_, err := c.InitializeDraft(ctx, req)
	require.NoError(t, err)
	_, err = c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "field": domain.FieldVenue, "value": "Blue Note"}))
	require.NoError(t, err)

	store.fail(errors.New("network error"))
	_, err = c.Flush(ctx, req)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	got, err := c.GetStatus(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "error", got.Fields["status"].GetStringValue())
	assert.Equal(t, float64(1), got.Fields["retry_count"].GetNumberValue())
	assert.Equal(t, "network error", got.Fields["last_error"].GetStringValue())
	assert.Equal(t, []any{domain.FieldVenue}, got.Fields["dirty_fields"].GetListValue().AsSlice())
}

func TestHandler_GoToStepFlushes(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient(t)
	_, err := c.InitializeDraft(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1"}))
	require.NoError(t, err)
	_, err = c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "field": domain.FieldMarket, "value": "austin"}))
	require.NoError(t, err)

	got, err := c.GoToStep(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "step": 2}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), got.Fields["current_step"].GetNumberValue())
	assert.Len(t, store.calls(), 1)
}

func TestHandler_GetDraft(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	got, err := c.GetDraft(ctx, mustStruct(t, map[string]any{"draft_id": "stored"}))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T10:00:00Z", got.Fields["updated_at"].GetStringValue())
	assert.Equal(t, []any{"jazz"}, got.Fields["fields"].GetStructValue().AsMap()[domain.FieldTags])

	_, err = c.GetDraft(ctx, mustStruct(t, map[string]any{"draft_id": "missing"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHandler_ClearDraft(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient(t)

	for _, id := range []string{"keep", "drop"} {
		_, err := c.InitializeDraft(ctx, mustStruct(t, map[string]any{"draft_id": id}))
		require.NoError(t, err)
		_, err = c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": id, "field": domain.FieldTitle, "value": id}))
		require.NoError(t, err)
	}

	_, err := c.ClearDraft(ctx, mustStruct(t, map[string]any{"draft_id": "keep"}))
	require.NoError(t, err)
	_, err = c.ClearDraft(ctx, mustStruct(t, map[string]any{"draft_id": "drop", "discard": true}))
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{domain.FieldTitle: "keep"}}, store.calls())
	_, err = c.GetStatus(ctx, mustStruct(t, map[string]any{"draft_id": "drop"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHandler_WatchStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _ := newTestClient(t)
	req := mustStruct(t, map[string]any{"draft_id": "draft-1"})
	_, err := c.InitializeDraft(ctx, req)
	require.NoError(t, err)

	stream, err := c.WatchStatus(ctx, req)
	require.NoError(t, err)
	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "idle", first.Fields["status"].GetStringValue())

	_, err = c.UpdateField(ctx, mustStruct(t, map[string]any{"draft_id": "draft-1", "field": domain.FieldTitle, "value": "x"}))
	require.NoError(t, err)
	_, err = c.Flush(ctx, req)
	require.NoError(t, err)

	var got []string
	for range 2 {
		ev, err := stream.Recv()
		require.NoError(t, err)
		got = append(got, ev.Fields["status"].GetStringValue())
	}
	assert.Equal(t, []string{"saving", "saved"}, got)
}

func TestHandler_WatchStatusEndsWhenDraftCloses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _ := newTestClient(t)
	req := mustStruct(t, map[string]any{"draft_id": "draft-1"})
	_, err := c.InitializeDraft(ctx, req)
	require.NoError(t, err)

	stream, err := c.WatchStatus(ctx, req)
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	// idle before and after, so no status transition is published
	_, err = c.ClearDraft(ctx, req)
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{domain.ErrDraftNotFound, codes.NotFound},
		{domain.ErrEmptyFieldName, codes.InvalidArgument},
		{domain.ErrNoActiveDraft, codes.FailedPrecondition},
		{domain.ErrNoPersister, codes.FailedPrecondition},
		{domain.ErrDraftClosing, codes.FailedPrecondition},
		{&autosave.SaveError{DraftID: "d", Attempt: 1, Err: errors.New("offline")}, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(mapError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, mapError(nil))
}

func TestToValueFallsBackToJSON(t *testing.T) {
	v, err := toValue([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v.AsInterface())
}
