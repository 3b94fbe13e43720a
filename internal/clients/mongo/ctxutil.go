package mongo

import (
	"context"
	"time"
)

// OpTimeout is the default timeout for MongoDB operations
const OpTimeout = 5 * time.Second

// WithRepoTimeout returns ctx unchanged when it is already within d of
// expiring (or canceled); otherwise it wraps ctx in context.WithTimeout.
// The returned cancel is always safe to defer unconditionally; when no new
// context is created it is a no-op stub.
func WithRepoTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
		// Existing deadline is stricter, keep it.
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
