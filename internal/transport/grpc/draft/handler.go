// Package draft is the gRPC transport of the draft autosave service.
package draft

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	draftv1 "github.com/murkotick/draft-autosave-service/proto/draft/v1"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/queries/get_draft"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/session"
)

const watchBuffer = 16

var _ draftv1.DraftServiceServer = (*Handler)(nil)

// Handler is a thin gRPC transport adapter.
// It validates input, maps Struct messages and delegates to the open editing sessions.
type Handler struct {
	sessions *session.Registry
	getDraft *get_draft.Handler
}

// NewHandler creates a Handler. getDraft may be nil when no read model is
// configured; GetDraft then answers Unimplemented.
func NewHandler(sessions *session.Registry, getDraft *get_draft.Handler) *Handler {
	return &Handler{sessions: sessions, getDraft: getDraft}
}

func (h *Handler) session(req *structpb.Struct) (*autosave.Manager, error) {
	id, err := validateDraftRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	m, ok := h.sessions.Get(id)
	if !ok {
		return nil, mapError(domain.ErrDraftNotFound)
	}
	return m, nil
}

func (h *Handler) reply(m *autosave.Manager) (*structpb.Struct, error) {
	out, err := mapStatusReply(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (h *Handler) InitializeDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := h.sessions.Open(ctx, stringField(req, "draft_id"))
	if err != nil {
		return nil, mapError(err)
	}
	return h.reply(m)
}

func (h *Handler) UpdateField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := validateUpdateField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	m, err := h.session(req)
	if err != nil {
		return nil, err
	}
	if err := m.UpdateField(ctx, in.Field, in.Value); err != nil {
		return nil, mapError(err)
	}
	return h.reply(m)
}

func (h *Handler) Flush(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := h.session(req)
	if err != nil {
		return nil, err
	}
	if err := m.Flush(ctx); err != nil {
		return nil, mapError(err)
	}
	return h.reply(m)
}

func (h *Handler) GoToStep(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, step, err := validateGoToStep(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	m, err := h.session(req)
	if err != nil {
		return nil, err
	}
	if err := m.GoToStep(ctx, step); err != nil {
		return nil, mapError(err)
	}
	return h.reply(m)
}

func (h *Handler) GetStatus(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := h.session(req)
	if err != nil {
		return nil, err
	}
	return h.reply(m)
}

func (h *Handler) GetDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if h.getDraft == nil {
		return nil, status.Error(codes.Unimplemented, "draft read model is not configured")
	}
	id, err := validateDraftRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	d, err := h.getDraft.Execute(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := mapDraftReply(d)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ClearDraft closes the session. Pending edits are flushed first unless the
// request sets discard.
func (h *Handler) ClearDraft(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := validateDraftRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if req.GetFields()["discard"].GetBoolValue() {
		err = h.sessions.Discard(ctx, id)
	} else {
		err = h.sessions.Close(ctx, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// WatchStatus sends the current state, then one message per status
// transition until the client goes away or the session moves to another draft.
func (h *Handler) WatchStatus(req *structpb.Struct, stream draftv1.DraftService_WatchStatusServer) error {
	m, err := h.session(req)
	if err != nil {
		return err
	}
	id := m.DraftID()

	events, cancel := m.Subscribe(watchBuffer)
	defer cancel()

	first, err := h.reply(m)
	if err != nil {
		return err
	}
	if err := stream.Send(first); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok || ev.DraftID != id {
				return nil
			}
			if err := stream.Send(mapStatusEvent(ev)); err != nil {
				return err
			}
		}
	}
}
