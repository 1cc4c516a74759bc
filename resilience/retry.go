package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps every individual delay.
	MaxDelay time.Duration
	// Jitter is the randomization factor applied to each delay (0.0 to 1.0).
	Jitter float64
	// ShouldRetry decides whether a failed attempt is retried.
	ShouldRetry func(error) bool
	// OnRetry is called before sleeping ahead of a retry.
	OnRetry func(ctx context.Context, attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns 3 retries starting at 2s, doubling with 20%
// jitter, capped at 5 minutes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  int(DefaultMaxRetryCount),
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxRetryDelay,
		Jitter:      0.2,
		ShouldRetry: DefaultShouldHandle,
	}
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxRetryDelay
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = 0.2
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldHandle
	}
}

// newBackOff builds the exponential schedule. Delay n lies within
// BaseDelay·2ⁿ·(1±Jitter), so consecutive delays strictly increase until
// they reach MaxDelay.
func (cfg RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.BaseDelay,
		RandomizationFactor: cfg.Jitter,
		Multiplier:          2,
		MaxInterval:         cfg.MaxDelay,
	}
	b.Reset()
	return b
}

// Retry runs fn until it succeeds, returns an error ShouldRetry declines, or
// MaxRetries retries have been spent. The last error is returned unchanged.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cfg.applyDefaults()
	b := cfg.newBackOff()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt > cfg.MaxRetries || !cfg.ShouldRetry(err) || ctx.Err() != nil {
			return zero, err
		}

		delay := min(b.NextBackOff(), cfg.MaxDelay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(ctx, attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
