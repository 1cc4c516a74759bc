package resilience

import (
	"context"
	"time"
)

// Operation is a unit of work guarded by the pipeline. Each attempt receives
// its own context.
type Operation[T any] func(ctx context.Context) (T, error)

// Middleware wraps an Operation with a policy.
type Middleware[T any] func(Operation[T]) Operation[T]

// Chain composes middlewares. The first middleware is outermost (executes
// first on the way in, last on the way out).
//
// Chain(a, b, c)(op) is equivalent to a(b(c(op))).
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(inner Operation[T]) Operation[T] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// RateLimitMiddleware waits for rate limiter admission before each call.
func RateLimitMiddleware[T any](rl *RateLimiter) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			if err := rl.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
			return next(ctx)
		}
	}
}

// ConcurrencyMiddleware holds a bulkhead slot for the duration of the call,
// retries included.
func ConcurrencyMiddleware[T any](b *Bulkhead) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			if err := b.Acquire(ctx); err != nil {
				var zero T
				return zero, err
			}
			defer b.Release()
			return next(ctx)
		}
	}
}

// RetryMiddleware re-runs the inner operation per cfg.
func RetryMiddleware[T any](cfg RetryConfig) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return Retry(ctx, cfg, next)
		}
	}
}

// CircuitBreakerMiddleware routes every attempt through cb.
func CircuitBreakerMiddleware[T any](cb *CircuitBreaker) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			var result T
			err := cb.Execute(func() error {
				var err error
				result, err = next(ctx)
				return err
			})
			if err != nil {
				var zero T
				return zero, err
			}
			return result, nil
		}
	}
}

// TimeoutMiddleware bounds every attempt by d.
func TimeoutMiddleware[T any](d time.Duration) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return Timeout(ctx, d, next)
		}
	}
}
