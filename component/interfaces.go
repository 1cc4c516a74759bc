package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is anything with a start/stop lifecycle: the endpoint cache, the
// HTTP server, the database connection.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Describable is optionally implemented by components that can report a
// one-line description for the startup log.
type Describable interface {
	Describe() string
}

// Route is one HTTP route exposed by a component.
type Route struct {
	Method string
	Path   string
	System bool
}

// RouteProvider is optionally implemented by components that serve HTTP
// routes, so the startup summary can list them.
type RouteProvider interface {
	Routes() []Route
}
