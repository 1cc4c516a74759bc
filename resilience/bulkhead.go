package resilience

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// OnReject is called when a waiting caller gives up.
	OnReject func(name string, err error)
}

// DefaultBulkheadConfig returns 10 concurrent slots.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: int(DefaultRequestsPerSecond),
	}
}

// Bulkhead limits the number of calls in flight. Excess callers wait in an
// unbounded FIFO queue until a slot frees or their context ends.
type Bulkhead struct {
	config   BulkheadConfig
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = int(DefaultRequestsPerSecond)
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Acquire waits for a slot. A cancelled wait returns a *RejectedError.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		rej := &RejectedError{Policy: PolicyConcurrency, Err: err}
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, rej)
		}
		return rej
	}
	b.inFlight.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.inFlight.Add(-1)
	b.sem.Release(1)
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

// InFlight returns the number of calls currently holding a slot.
func (b *Bulkhead) InFlight() int {
	return int(b.inFlight.Load())
}

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
