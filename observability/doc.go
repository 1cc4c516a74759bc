// Package observability wires OpenTelemetry tracing and metrics.
//
// Metrics are exported either through a Prometheus handler mounted on the
// service's /metrics route or pushed over OTLP:
//
//	mp, handler, err := observability.InitPrometheus(observability.DefaultMeterConfig("readonly-service"))
//	metrics, err := observability.NewMetrics(observability.Meter("readonly-service"))
//
// ResilienceObserver and LogObserver turn pipeline events into counters and
// log lines; combine them with resilience.Observers.
package observability
