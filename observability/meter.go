package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrEdHardy/schleuben/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the OTLP export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("Meter initialized", logger.Fields(
			"exporter", ExporterOTLP,
			"endpoint", config.Endpoint,
			"interval", config.Interval.String(),
		))
	}
	return mp, nil
}

// InitPrometheus installs a meter provider backed by a Prometheus exporter on
// a private registry and returns the handler that serves it.
func InitPrometheus(config MeterConfig) (*sdkmetric.MeterProvider, http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments shared by the server, the endpoint cache and
// the resilience pipeline. A nil *Metrics records nothing.
type Metrics struct {
	requestTotal     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestActive    metric.Int64UpDownCounter
	outboundTotal    metric.Int64Counter
	outboundDuration metric.Float64Histogram
	resilienceEvents metric.Int64Counter
	discoverySweeps  metric.Int64Counter
	discoveryEntries metric.Int64Gauge
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Inbound requests by method, route and status"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of inbound requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.server.active",
		metric.WithDescription("Inbound requests in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.active gauge: %w", err)
	}
	if m.outboundTotal, err = meter.Int64Counter("http.client.attempts",
		metric.WithDescription("Outbound attempts by method and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating http.client.attempts counter: %w", err)
	}
	if m.outboundDuration, err = meter.Float64Histogram("http.client.duration",
		metric.WithDescription("Duration of outbound attempts"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.client.duration histogram: %w", err)
	}
	if m.resilienceEvents, err = meter.Int64Counter("resilience.events",
		metric.WithDescription("Resilience pipeline events by pipeline and type"),
	); err != nil {
		return nil, fmt.Errorf("creating resilience.events counter: %w", err)
	}
	if m.discoverySweeps, err = meter.Int64Counter("discovery.sweeps",
		metric.WithDescription("Endpoint cache sweeps by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating discovery.sweeps counter: %w", err)
	}
	if m.discoveryEntries, err = meter.Int64Gauge("discovery.entries",
		metric.WithDescription("Operations in the endpoint registry"),
	); err != nil {
		return nil, fmt.Errorf("creating discovery.entries gauge: %w", err)
	}
	return &m, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordOutbound records one outbound attempt. outcome is the status code or
// the error class.
func (m *Metrics) RecordOutbound(ctx context.Context, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.outboundTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.outboundDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordResilienceEvent counts a pipeline event.
func (m *Metrics) RecordResilienceEvent(ctx context.Context, pipeline, event string) {
	if m == nil {
		return
	}
	m.resilienceEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("event", event),
	))
}

// RecordSweep counts a discovery sweep and, on success, the resulting
// registry size.
func (m *Metrics) RecordSweep(ctx context.Context, cache string, entries int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.discoverySweeps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
	if err == nil {
		m.discoveryEntries.Record(ctx, int64(entries), metric.WithAttributes(attribute.String("cache", cache)))
	}
}
