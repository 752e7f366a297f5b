package repokit

import (
	"context"
	"time"

	perr "nhanes/internal/platform/errors"
)

// Guarder reports whether every configured backend answers; *store.Store is one
type Guarder interface {
	Guard(context.Context) error
}

// Guard runs g.Guard within timeout and reports failure as unavailable
func Guard(ctx context.Context, g Guarder, timeout time.Duration) error {
	if g == nil {
		return perr.New(perr.ErrorCodeUnavailable, "no store configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := g.Guard(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "store not ready")
	}
	return nil
}
