// Package server is the HTTP surface shared by the database, readonly and
// mutable services: a gin engine behind an h2c handler with request IDs,
// request logging, body size limits, per-client rate limiting and an error
// handler that renders *errors.AppError values.
//
// Every server also answers /health, /readyz, /livez, /version, /metrics and
// /openapi/v1.json. The last one is generated from the registered gin routes,
// which is what makes a service discoverable by an endpoint cache.
package server
