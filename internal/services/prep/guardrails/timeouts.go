// Package guardrails holds time budget helpers for prep runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one run
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run caps the whole run
	Run time.Duration

	// File caps decoding a single input file
	File time.Duration

	// Align caps aligning one generation
	Align time.Duration

	// DB caps the publish step
	DB time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForFile returns a sub context for decoding one file
func ForFile(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.File)
}

// ForAlign returns a sub context for aligning one generation
func ForAlign(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Align)
}

// ForDB returns a sub context for the publish step
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder
// d <= 0 returns a plain cancelable child
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
