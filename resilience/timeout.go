package resilience

import (
	"context"
	"time"
)

// Timeout runs fn with a context that expires after d. The attempt is
// reported as a *TimeoutError only when its own deadline fired while the
// caller's context was still live; fn must honour ctx for the timeout to take
// effect.
func Timeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	result, err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() == context.DeadlineExceeded {
		var zero T
		return zero, &TimeoutError{Timeout: d, Err: err}
	}
	return result, err
}
