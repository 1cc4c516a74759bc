package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeout_ExpiresSlowAttempt(t *testing.T) {
	_, err := Timeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Timeout != 10*time.Millisecond {
		t.Errorf("unexpected timeout %v", te.Timeout)
	}
	if !DefaultShouldHandle(err) {
		t.Error("expected attempt timeout to be retry-eligible")
	}
}

func TestTimeout_FastAttempt(t *testing.T) {
	v, err := Timeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("expected 42, got %d, %v", v, err)
	}
}

func TestTimeout_CallerCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Timeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	var te *TimeoutError
	if errors.As(err, &te) {
		t.Fatal("caller cancellation must not be reported as attempt timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTimeout_ZeroDisables(t *testing.T) {
	_, err := Timeout(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline")
		}
		return 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
