package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection or I/O failure.
	ErrCodeConnection
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeClient indicates any other 4xx status.
	ErrCodeClient
	// ErrCodeServer indicates a 5xx status.
	ErrCodeServer
	// ErrCodeRequest indicates the request could not be built.
	ErrCodeRequest
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeClient:
		return "client"
	case ErrCodeServer:
		return "server"
	case ErrCodeRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error is a classified outbound call failure.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the call may be attempted again.
	Retryable bool
	// Body is the response body, if any.
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable lets the resilience pipeline classify the error.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewRequestError reports a request that could not be built. It is never retried.
func NewRequestError(msg string) *Error {
	return &Error{Code: ErrCodeRequest, Message: msg}
}

// ClassifyStatusCode converts a non-2xx status into an *Error. Every
// non-success status is retry-eligible. Returns nil for 2xx.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	code := ErrCodeServer
	switch {
	case statusCode == http.StatusNotFound:
		code = ErrCodeNotFound
	case statusCode >= 400 && statusCode < 500:
		code = ErrCodeClient
	}
	return &Error{
		StatusCode: statusCode,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  true,
		Body:       body,
	}
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == ErrCodeConnection
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == ErrCodeNotFound
}

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == ErrCodeServer
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}
