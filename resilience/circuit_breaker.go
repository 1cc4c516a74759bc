package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a probe to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// FailureRatio trips the breaker when strictly exceeded.
	FailureRatio float64
	// MinimumThroughput is the number of calls in the window before the
	// ratio is considered.
	MinimumThroughput uint32
	// SamplingDuration is the rolling window over which the ratio is measured.
	SamplingDuration time.Duration
	// BucketPeriod is the granularity of the rolling window.
	BucketPeriod time.Duration
	// BreakDuration is how long the breaker stays open before probing.
	BreakDuration time.Duration
	// HalfOpenMaxRequests is the number of probes allowed while half-open.
	HalfOpenMaxRequests uint32
	// IsFailure decides whether an error counts against the ratio.
	IsFailure func(error) bool
	// OnStateChange is called when state changes. It runs under the breaker's
	// lock and must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns a 0.2 ratio over 90s with 10s breaks.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		FailureRatio:        DefaultCircuitBreakerFailureRatio,
		MinimumThroughput:   DefaultMinimumThroughput,
		SamplingDuration:    DefaultSettings().SamplingDuration(),
		BucketPeriod:        time.Second,
		BreakDuration:       DefaultBreakDuration,
		HalfOpenMaxRequests: 1,
		IsFailure:           DefaultShouldHandle,
	}
}

// CircuitBreaker fails fast while a dependency is unhealthy. It wraps a
// gobreaker rolling-window breaker tripping on the failure ratio.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	cb     *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(config.Name)
	if config.FailureRatio <= 0 || config.FailureRatio > 1 {
		config.FailureRatio = def.FailureRatio
	}
	if config.MinimumThroughput == 0 {
		config.MinimumThroughput = def.MinimumThroughput
	}
	if config.SamplingDuration <= 0 {
		config.SamplingDuration = def.SamplingDuration
	}
	if config.BucketPeriod <= 0 {
		config.BucketPeriod = def.BucketPeriod
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = def.BreakDuration
	}
	if config.HalfOpenMaxRequests == 0 {
		config.HalfOpenMaxRequests = def.HalfOpenMaxRequests
	}
	if config.IsFailure == nil {
		config.IsFailure = def.IsFailure
	}

	b := &CircuitBreaker{config: config}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         config.Name,
		MaxRequests:  config.HalfOpenMaxRequests,
		Interval:     config.SamplingDuration,
		BucketPeriod: config.BucketPeriod,
		Timeout:      config.BreakDuration,
		ReadyToTrip:  b.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange != nil {
				config.OnStateChange(name, fromGobreaker(from), fromGobreaker(to))
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !config.IsFailure(err)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
	return b
}

func (b *CircuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < b.config.MinimumThroughput {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return ratio > b.config.FailureRatio
}

// Execute runs fn unless the breaker is open. Rejections are returned as a
// *RejectedError wrapping gobreaker's open-state error.
func (b *CircuitBreaker) Execute(fn func() error) error {
	called := false
	_, err := b.cb.Execute(func() (any, error) {
		called = true
		return nil, fn()
	})
	if !called && err != nil {
		return &RejectedError{Policy: PolicyCircuitBreaker, Err: err}
	}
	return err
}

// State returns the current circuit breaker state.
func (b *CircuitBreaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Counts returns the requests and failures in the current window.
func (b *CircuitBreaker) Counts() (requests, failures uint32) {
	c := b.cb.Counts()
	return c.Requests, c.TotalFailures
}
