package draft

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// mapError translates domain sentinel errors into gRPC status codes.
// Unknown errors become codes.Internal.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	if errors.Is(err, domain.ErrDraftNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrEmptyDraftID),
		errors.Is(err, domain.ErrEmptyFieldName):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrNoActiveDraft),
		errors.Is(err, domain.ErrDraftClosing),
		errors.Is(err, domain.ErrNoPersister):
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	// The edits stay dirty, so the client may retry.
	var saveErr *autosave.SaveError
	if errors.As(err, &saveErr) {
		return status.Error(codes.Unavailable, err.Error())
	}

	return status.Error(codes.Internal, err.Error())
}
