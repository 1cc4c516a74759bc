// Package errors provides the application error type shared by the services.
// AppError carries a machine-readable code, the HTTP status the error maps to,
// and whether a caller may retry. Discovery and resilience failures are
// translated into AppErrors at the façade boundary.
package errors
