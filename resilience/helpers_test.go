package resilience

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type retryableErr struct{ msg string }

func (e *retryableErr) Error() string     { return e.msg }
func (e *retryableErr) IsRetryable() bool { return true }

type permanentErr struct{}

func (permanentErr) Error() string     { return "permanent" }
func (permanentErr) IsRetryable() bool { return false }

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnEvent(_ context.Context, e Event) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recordingObserver) count(typ EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (o *recordingObserver) ofType(typ EventType) []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Event
	for _, e := range o.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
