package resilience

import (
	"context"
	"time"
)

// EventType identifies a pipeline event.
type EventType string

const (
	EventRateLimitRejected   EventType = "rate_limit_rejected"
	EventConcurrencyRejected EventType = "concurrency_rejected"
	EventRetryAttempt        EventType = "retry_attempt"
	EventCircuitOpened       EventType = "circuit_opened"
	EventCircuitHalfOpened   EventType = "circuit_half_opened"
	EventCircuitClosed       EventType = "circuit_closed"
	EventAttemptTimeout      EventType = "attempt_timeout"
)

// Event is emitted by a pipeline for every notable policy decision.
type Event struct {
	Type     EventType
	Pipeline string
	// Attempt is the 1-based number of the attempt that is about to be retried.
	Attempt int
	// Delay is the backoff before the next attempt.
	Delay time.Duration
	Err   error
	Time  time.Time
}

// Observer receives pipeline events. Implementations must not block.
type Observer interface {
	OnEvent(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) OnEvent(ctx context.Context, e Event) { f(ctx, e) }

type multiObserver []Observer

func (m multiObserver) OnEvent(ctx context.Context, e Event) {
	for _, o := range m {
		o.OnEvent(ctx, e)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func stateEvent(to State) EventType {
	switch to {
	case StateOpen:
		return EventCircuitOpened
	case StateHalfOpen:
		return EventCircuitHalfOpened
	default:
		return EventCircuitClosed
	}
}
