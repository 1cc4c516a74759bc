package resilience

import (
	"context"
	"errors"
	"time"
)

type pipelineOptions struct {
	observer          Observer
	baseDelay         time.Duration
	attemptTimeout    time.Duration
	breakDuration     time.Duration
	minimumThroughput uint32
	ratePeriod        time.Duration
	shouldHandle      func(error) bool
}

// Option customises a Pipeline beyond its Settings.
type Option func(*pipelineOptions)

// WithObserver receives every pipeline event.
func WithObserver(o Observer) Option {
	return func(po *pipelineOptions) { po.observer = o }
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(po *pipelineOptions) { po.baseDelay = d }
}

// WithAttemptTimeout sets the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(po *pipelineOptions) { po.attemptTimeout = d }
}

// WithBreakDuration sets how long the breaker stays open.
func WithBreakDuration(d time.Duration) Option {
	return func(po *pipelineOptions) { po.breakDuration = d }
}

// WithMinimumThroughput sets the number of calls the breaker needs in its
// window before it may trip.
func WithMinimumThroughput(n uint32) Option {
	return func(po *pipelineOptions) { po.minimumThroughput = n }
}

// WithRatePeriod sets the rate limiter replenishment period.
func WithRatePeriod(d time.Duration) Option {
	return func(po *pipelineOptions) { po.ratePeriod = d }
}

// WithShouldHandle replaces the predicate that decides which failures are
// retried and counted by the breaker.
func WithShouldHandle(fn func(error) bool) Option {
	return func(po *pipelineOptions) { po.shouldHandle = fn }
}

// Pipeline composes rate limit, concurrency limit, retry, circuit breaker and
// per-attempt timeout, outermost first. A single instance is shared by every
// outbound call of its owner, so the limits apply across callers.
type Pipeline[T any] struct {
	name     string
	settings Settings
	observer Observer

	limiter  *RateLimiter
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	run      Middleware[T]
}

// NewPipeline builds a pipeline from settings. Missing or invalid settings
// fall back to their defaults.
func NewPipeline[T any](name string, settings Settings, opts ...Option) *Pipeline[T] {
	settings.ApplyDefaults()
	po := pipelineOptions{
		baseDelay:         DefaultBaseDelay,
		attemptTimeout:    DefaultAttemptTimeout,
		breakDuration:     DefaultBreakDuration,
		minimumThroughput: DefaultMinimumThroughput,
		ratePeriod:        time.Second,
		shouldHandle:      DefaultShouldHandle,
	}
	for _, opt := range opts {
		opt(&po)
	}
	if po.observer == nil {
		po.observer = Observers()
	}

	p := &Pipeline[T]{name: name, settings: settings, observer: po.observer}

	p.limiter = NewRateLimiter(RateLimiterConfig{
		Name:   name,
		Limit:  int(settings.RequestsPerSecond),
		Period: po.ratePeriod,
	})
	p.bulkhead = NewBulkhead(BulkheadConfig{
		Name:          name,
		MaxConcurrent: int(settings.RequestsPerSecond),
	})
	p.breaker = NewCircuitBreaker(CircuitBreakerConfig{
		Name:                name,
		FailureRatio:        settings.CircuitBreakerFailureRatio,
		MinimumThroughput:   po.minimumThroughput,
		SamplingDuration:    settings.SamplingDuration(),
		BucketPeriod:        time.Second,
		BreakDuration:       po.breakDuration,
		HalfOpenMaxRequests: 1,
		IsFailure:           po.shouldHandle,
		OnStateChange: func(_ string, _, to State) {
			p.emit(context.Background(), Event{Type: stateEvent(to)})
		},
	})
	retry := RetryConfig{
		MaxRetries:  int(settings.MaxRetryCount),
		BaseDelay:   po.baseDelay,
		MaxDelay:    settings.MaxRetryDelay,
		Jitter:      0.2,
		ShouldRetry: po.shouldHandle,
		OnRetry: func(ctx context.Context, attempt int, err error, delay time.Duration) {
			p.emit(ctx, Event{Type: EventRetryAttempt, Attempt: attempt, Delay: delay, Err: err})
		},
	}

	p.run = Chain(
		p.observe(EventRateLimitRejected, PolicyRateLimit),
		RateLimitMiddleware[T](p.limiter),
		p.observe(EventConcurrencyRejected, PolicyConcurrency),
		ConcurrencyMiddleware[T](p.bulkhead),
		RetryMiddleware[T](retry),
		CircuitBreakerMiddleware[T](p.breaker),
		p.observeTimeout(),
		TimeoutMiddleware[T](po.attemptTimeout),
	)
	return p
}

// Execute runs op through every policy.
func (p *Pipeline[T]) Execute(ctx context.Context, op Operation[T]) (T, error) {
	return p.run(op)(ctx)
}

// Name returns the pipeline name.
func (p *Pipeline[T]) Name() string { return p.name }

// Settings returns the effective settings after defaults.
func (p *Pipeline[T]) Settings() Settings { return p.settings }

// CircuitState returns the breaker state.
func (p *Pipeline[T]) CircuitState() State { return p.breaker.State() }

func (p *Pipeline[T]) emit(ctx context.Context, e Event) {
	e.Pipeline = p.name
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	p.observer.OnEvent(ctx, e)
}

// observe reports rejections by the policy directly inside it. Rejections
// from further in are passed through untouched.
func (p *Pipeline[T]) observe(typ EventType, policy Policy) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			result, err := next(ctx)
			if rej, ok := IsRejected(err); ok && rej.Policy == policy {
				p.emit(ctx, Event{Type: typ, Err: err})
			}
			return result, err
		}
	}
}

func (p *Pipeline[T]) observeTimeout() Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			result, err := next(ctx)
			var te *TimeoutError
			if errors.As(err, &te) {
				p.emit(ctx, Event{Type: EventAttemptTimeout, Err: err})
			}
			return result, err
		}
	}
}
