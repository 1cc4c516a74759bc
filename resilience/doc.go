// Package resilience guards outbound calls with a fixed stack of policies:
// rate limit, concurrency limit, retry with exponential backoff, circuit
// breaker and per-attempt timeout, outermost first.
//
// Each policy is usable on its own (RateLimiter, Bulkhead, Retry,
// CircuitBreaker, Timeout) and as a Middleware. Pipeline wires them from the
// four externally configured Settings:
//
//	p := resilience.NewPipeline[*httpclient.Response]("database-service", settings,
//	    resilience.WithObserver(observer))
//	resp, err := p.Execute(ctx, func(ctx context.Context) (*httpclient.Response, error) {
//	    return client.Do(ctx, req)
//	})
//
// A call a policy refused yields a *RejectedError (errors.Is(err, ErrRejected));
// an attempt that outlived its timeout yields a *TimeoutError.
package resilience
