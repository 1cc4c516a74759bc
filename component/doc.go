// Package component defines the lifecycle contract shared by the endpoint
// cache, the HTTP server and the database connection, and a Registry that
// starts them in order and stops them in reverse.
package component
