package resilience

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Limit is the number of starts allowed per Period.
	Limit int
	// Period is the replenishment period of a single slot.
	Period time.Duration
	// OnReject is called when a waiting caller gives up.
	OnReject func(name string, err error)
}

// DefaultRateLimiterConfig returns 10 starts per second.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:   name,
		Limit:  int(DefaultRequestsPerSecond),
		Period: time.Second,
	}
}

// RateLimiter admits at most Limit starts in any rolling Period. Each
// admission occupies a slot that frees exactly one Period after it was taken,
// so bursts never exceed Limit within a window. Callers that find no free slot
// queue in FIFO order until one frees or their context ends.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	admitted []time.Time // ring of the most recent admissions, oldest at head
	head     int
	count    int
	waiters  list.List
	timer    *time.Timer

	onAdmit func(time.Time)
}

type rateWaiter struct {
	ready   chan struct{}
	granted bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = int(DefaultRequestsPerSecond)
	}
	if config.Period <= 0 {
		config.Period = time.Second
	}
	return &RateLimiter{
		config:   config,
		admitted: make([]time.Time, config.Limit),
	}
}

// Allow admits a start without waiting. It never jumps the queue.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if rl.waiters.Len() > 0 || !rl.slotFree(now) {
		return false
	}
	rl.admit(now)
	return true
}

// Wait blocks until a start is admitted. When ctx ends first the caller
// leaves the queue and a *RejectedError wrapping ctx.Err() is returned.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	if rl.waiters.Len() == 0 && rl.slotFree(now) {
		rl.admit(now)
		rl.mu.Unlock()
		return nil
	}

	w := &rateWaiter{ready: make(chan struct{})}
	elem := rl.waiters.PushBack(w)
	rl.schedule(now)
	rl.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}

	rl.mu.Lock()
	if w.granted {
		rl.mu.Unlock()
		return nil
	}
	rl.waiters.Remove(elem)
	rl.dispatch(time.Now())
	rl.mu.Unlock()

	err := &RejectedError{Policy: PolicyRateLimit, Err: ctx.Err()}
	if rl.config.OnReject != nil {
		rl.config.OnReject(rl.config.Name, err)
	}
	return err
}

// Execute waits for admission and then runs fn.
func (rl *RateLimiter) Execute(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Queued returns the number of callers waiting for a slot.
func (rl *RateLimiter) Queued() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.waiters.Len()
}

// Limit returns the number of starts allowed per period.
func (rl *RateLimiter) Limit() int { return rl.config.Limit }

// Period returns the replenishment period.
func (rl *RateLimiter) Period() time.Duration { return rl.config.Period }

func (rl *RateLimiter) slotFree(now time.Time) bool {
	if rl.count < len(rl.admitted) {
		return true
	}
	return !now.Before(rl.admitted[rl.head].Add(rl.config.Period))
}

func (rl *RateLimiter) admit(now time.Time) {
	if rl.count < len(rl.admitted) {
		rl.admitted[(rl.head+rl.count)%len(rl.admitted)] = now
		rl.count++
	} else {
		rl.admitted[rl.head] = now
		rl.head = (rl.head + 1) % len(rl.admitted)
	}
	if rl.onAdmit != nil {
		rl.onAdmit(now)
	}
}

// dispatch hands free slots to waiters in queue order. Caller holds mu.
func (rl *RateLimiter) dispatch(now time.Time) {
	for rl.waiters.Len() > 0 && rl.slotFree(now) {
		w := rl.waiters.Remove(rl.waiters.Front()).(*rateWaiter)
		rl.admit(now)
		w.granted = true
		close(w.ready)
	}
	rl.schedule(now)
}

// schedule arms the timer for the moment the oldest slot frees, or disarms
// it when nobody is waiting. Caller holds mu.
func (rl *RateLimiter) schedule(now time.Time) {
	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}
	if rl.waiters.Len() == 0 {
		return
	}
	wait := rl.admitted[rl.head].Add(rl.config.Period).Sub(now)
	if rl.count < len(rl.admitted) || wait < 0 {
		wait = 0
	}
	rl.timer = time.AfterFunc(wait, func() {
		rl.mu.Lock()
		rl.dispatch(time.Now())
		rl.mu.Unlock()
	})
}
