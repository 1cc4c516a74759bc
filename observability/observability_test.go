package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/resilience"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// sumInt64 adds up every data point of the named counter whose attributes
// contain want.
func sumInt64(t *testing.T, reader *sdkmetric.ManualReader, name string, want ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAttributes(dp.Attributes, want) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttributes(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestConfig_ApplyDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Metrics.Exporter != ExporterPrometheus {
		t.Errorf("expected exporter %q, got %q", ExporterPrometheus, cfg.Metrics.Exporter)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %v", cfg.Tracing.SampleRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}

	cfg.Metrics.Exporter = "statsd"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown exporter")
	}

	cfg.Metrics.Exporter = ExporterNone
	cfg.Tracing.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, http.MethodGet, "/people", http.StatusOK, 12*time.Millisecond)
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, http.MethodGet, "/people", http.StatusNotFound, 3*time.Millisecond)

	if got := sumInt64(t, reader, "http.server.requests", attribute.String("route", "/people")); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
	if got := sumInt64(t, reader, "http.server.requests", attribute.String("status", "404")); got != 1 {
		t.Errorf("expected 1 not-found request, got %d", got)
	}
	if got := sumInt64(t, reader, "http.server.active"); got != 0 {
		t.Errorf("expected no active requests, got %d", got)
	}
}

func TestMetrics_RecordSweep(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSweep(ctx, "readonly", 5, nil)
	m.RecordSweep(ctx, "readonly", 0, errors.New("unreachable"))

	if got := sumInt64(t, reader, "discovery.sweeps", attribute.String("result", "ok")); got != 1 {
		t.Errorf("expected 1 successful sweep, got %d", got)
	}
	if got := sumInt64(t, reader, "discovery.sweeps", attribute.String("result", "error")); got != 1 {
		t.Errorf("expected 1 failed sweep, got %d", got)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordOutbound(ctx, http.MethodGet, "200", time.Millisecond)
	m.RecordResilienceEvent(ctx, "p", "retry_attempt")
	m.RecordSweep(ctx, "c", 1, nil)
}

func TestResilienceObserver(t *testing.T) {
	m, reader := newTestMetrics(t)
	obs := NewResilienceObserver(m)

	ctx := context.Background()
	obs.OnEvent(ctx, resilience.Event{Type: resilience.EventRetryAttempt, Pipeline: "readonly"})
	obs.OnEvent(ctx, resilience.Event{Type: resilience.EventRetryAttempt, Pipeline: "readonly"})
	obs.OnEvent(ctx, resilience.Event{Type: resilience.EventCircuitOpened, Pipeline: "readonly"})

	got := sumInt64(t, reader, "resilience.events",
		attribute.String("pipeline", "readonly"),
		attribute.String("event", string(resilience.EventRetryAttempt)),
	)
	if got != 2 {
		t.Errorf("expected 2 retry events, got %d", got)
	}
	if got := sumInt64(t, reader, "resilience.events"); got != 3 {
		t.Errorf("expected 3 events in total, got %d", got)
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "test")
	obs := NewLogObserver(log)

	obs.OnEvent(context.Background(), resilience.Event{
		Type:     resilience.EventRetryAttempt,
		Pipeline: "mutable",
		Attempt:  2,
		Delay:    1500 * time.Millisecond,
		Err:      errors.New("503"),
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Retrying request" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry[logger.FieldPipeline] != "mutable" {
		t.Errorf("expected pipeline 'mutable', got %v", entry[logger.FieldPipeline])
	}
	if entry[logger.FieldAttempt] != float64(2) {
		t.Errorf("expected attempt 2, got %v", entry[logger.FieldAttempt])
	}
	if entry[logger.FieldDelay] != float64(1500) {
		t.Errorf("expected delay 1500, got %v", entry[logger.FieldDelay])
	}
	if entry[logger.FieldComponent] != "resilience" {
		t.Errorf("expected component 'resilience', got %v", entry[logger.FieldComponent])
	}
}

func TestLogObserver_CircuitOpenedIsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "test")
	NewLogObserver(log).OnEvent(context.Background(), resilience.Event{
		Type:     resilience.EventCircuitOpened,
		Pipeline: "readonly",
	})

	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", buf.String())
	}
}

func TestInitPrometheus(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	mp, handler, err := InitPrometheus(DefaultMeterConfig("test-service"))
	if err != nil {
		t.Fatalf("InitPrometheus() error = %v", err)
	}
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordResilienceEvent(context.Background(), "readonly", "retry_attempt")

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "resilience_events") {
		t.Errorf("expected resilience_events in scrape output")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("expected Go runtime collector in scrape output")
	}
}

func TestStartSpanAndEndSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, ok := StartSpan(context.Background(), SpanDiscoverySweep, attribute.String(AttrService, "DatabaseService"))
	EndSpan(ok, nil)

	_, failed := StartSpan(context.Background(), SpanOutboundCall)
	EndSpan(failed, errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != SpanDiscoverySweep {
		t.Errorf("expected span %q, got %q", SpanDiscoverySweep, spans[0].Name)
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("successful span should not carry error status")
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[1].Status.Code)
	}
	if len(spans[1].Events) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestInjectHeaders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	}()

	ctx, span := StartSpan(context.Background(), SpanFacadeCall)
	defer span.End()

	headers := map[string]string{}
	InjectHeaders(ctx, headers)
	if headers["traceparent"] == "" {
		t.Errorf("expected traceparent header, got %v", headers)
	}
}
