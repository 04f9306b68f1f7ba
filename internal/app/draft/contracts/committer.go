package contracts

import (
	"context"

	commitplan "github.com/murkotick/draft-autosave-service/internal/pkg/committer"
)

// Committer applies a collection of mutations atomically. It keeps usecases
// independent of the Spanner driver.
type Committer interface {
	Apply(ctx context.Context, plan *commitplan.Plan) error
}
