// Package platform holds the wiring every binary of the system shares:
// telemetry setup from configuration, and the downstream stack of an
// endpoint cache, resilience pipeline, HTTP client and caller that the
// gateway services and the command line client use to reach their
// backends.
package platform
