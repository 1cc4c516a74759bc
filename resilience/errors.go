package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Policy names a pipeline stage that can reject a call.
type Policy string

const (
	PolicyRateLimit      Policy = "rate_limit"
	PolicyConcurrency    Policy = "concurrency_limit"
	PolicyCircuitBreaker Policy = "circuit_breaker"
)

// ErrRejected matches every policy rejection with errors.Is.
var ErrRejected = errors.New("rejected by resilience policy")

// RejectedError reports that a policy refused to run the call.
type RejectedError struct {
	Policy Policy
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: rejected", e.Policy)
	}
	return fmt.Sprintf("%s: rejected: %v", e.Policy, e.Err)
}

func (e *RejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRejected}
	}
	return []error{ErrRejected, e.Err}
}

// TimeoutError reports an attempt that outlived the per-attempt timeout while
// the caller was still waiting.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s: %v", e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsRejected reports whether err is a policy rejection and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rej *RejectedError
	ok := errors.As(err, &rej)
	return rej, ok
}

// retryable is implemented by errors that classify themselves, such as
// httpclient's status errors.
type retryable interface {
	IsRetryable() bool
}

// DefaultShouldHandle is the outcome predicate shared by retry and the
// breaker: network, I/O and timeout failures and self-declared retryable
// errors count. Policy rejections and caller cancellation do not.
func DefaultShouldHandle(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, context.Canceled) {
		return false
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
