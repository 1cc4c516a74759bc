package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/discovery"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/resilience"
	"github.com/MrEdHardy/schleuben/testutil"
)

func downstreamConfig(addresses map[string]string) DownstreamConfig {
	return DownstreamConfig{
		Addresses: addresses,
		Resilience: resilience.Settings{
			MaxRetryCount:     1,
			RequestsPerSecond: 1000,
		},
		Discovery: discovery.Config{
			Name:     "test",
			Services: []string{"DatabaseService"},
		},
		AttemptTimeout: time.Second,
	}
}

func TestDownstreamConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DownstreamConfig)
		wantErr string
	}{
		{"valid", func(*DownstreamConfig) {}, ""},
		{"address matched case-insensitively", func(c *DownstreamConfig) {
			c.Addresses = map[string]string{"databaseservice": "http://localhost:5100"}
		}, ""},
		{"missing address", func(c *DownstreamConfig) {
			c.Addresses = map[string]string{"Other": "http://localhost:5100"}
		}, "addresses"},
		{"no services", func(c *DownstreamConfig) { c.Discovery.Services = nil }, "discovery.services"},
		{"bad failure ratio", func(c *DownstreamConfig) {
			c.Resilience.CircuitBreakerFailureRatio = 2
		}, "resilience"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := downstreamConfig(map[string]string{"DatabaseService": "http://localhost:5100"})
			tt.mutate(&cfg)
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDownstreamConfig_ApplyDefaults(t *testing.T) {
	var cfg DownstreamConfig
	cfg.ApplyDefaults()
	if cfg.AttemptTimeout != resilience.DefaultAttemptTimeout {
		t.Errorf("AttemptTimeout = %s, want %s", cfg.AttemptTimeout, resilience.DefaultAttemptTimeout)
	}
	if cfg.Discovery.RefreshInterval != discovery.DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %s, want %s", cfg.Discovery.RefreshInterval, discovery.DefaultRefreshInterval)
	}
	if cfg.Resilience.MaxRetryCount == 0 {
		t.Error("expected resilience defaults to be applied")
	}
}

func newDownstream(t *testing.T, addresses map[string]string) *Downstream {
	t.Helper()
	log, _ := testutil.NewLogger("test")
	d, err := NewDownstream("DatabaseService", downstreamConfig(addresses), nil, log)
	if err != nil {
		t.Fatalf("NewDownstream() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Cache.Stop(context.Background()) })
	return d
}

func peopleServer(t *testing.T, body string) *testutil.CapabilityServer {
	srv := testutil.NewCapabilityServer(t, "/people")
	srv.Handle("GET /people", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	return srv
}

func TestNewDownstream_CallsThroughDiscovery(t *testing.T) {
	srv := peopleServer(t, `[{"id":1,"firstName":"Barbara","lastName":"Liskov"}]`)
	d := newDownstream(t, map[string]string{"DatabaseService": srv.URL})

	var people []struct {
		ID       int    `json:"id"`
		LastName string `json:"lastName"`
	}
	if err := d.Caller.List(context.Background(), "people", "", &people); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(people) != 1 || people[0].LastName != "Liskov" {
		t.Errorf("unexpected people: %+v", people)
	}
	if got := d.Cache.Entries(); len(got) != 1 || got[0].Key != "/people" {
		t.Errorf("Entries() = %+v", got)
	}
}

func TestNewDownstream_RejectsInvalidConfig(t *testing.T) {
	log, _ := testutil.NewLogger("test")
	if _, err := NewDownstream("DatabaseService", downstreamConfig(nil), nil, log); err == nil {
		t.Fatal("expected an error for a service without address")
	}
}

func TestDownstream_ReloadRedirectsCalls(t *testing.T) {
	old := peopleServer(t, `[{"id":1,"lastName":"Old"}]`)
	fresh := peopleServer(t, `[{"id":2,"lastName":"New"}]`)
	d := newDownstream(t, map[string]string{"DatabaseService": old.URL})

	var people []struct {
		LastName string `json:"lastName"`
	}
	if err := d.Caller.List(context.Background(), "people", "", &people); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	d.Reload(map[string]string{"databaseservice": fresh.URL})

	if err := d.Caller.List(context.Background(), "people", "", &people); err != nil {
		t.Fatalf("List() after reload error = %v", err)
	}
	if len(people) != 1 || people[0].LastName != "New" {
		t.Errorf("expected the reloaded address to serve, got %+v", people)
	}
}

func TestDownstream_Watch(t *testing.T) {
	old := peopleServer(t, `[{"id":1,"lastName":"Old"}]`)
	fresh := peopleServer(t, `[{"id":2,"lastName":"New"}]`)

	path := filepath.Join(t.TempDir(), "config.yml")
	write := func(url string, rps int) {
		t.Helper()
		doc := fmt.Sprintf("addresses:\n  DatabaseService: %s\nresilience:\n  max_retry_count: 1\n  requests_per_second: %d\n", url, rps)
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write(old.URL, 1000)

	loader, err := config.NewLoader("test", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	var cfg DownstreamConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	cfg.Discovery = discovery.Config{Name: "test", Services: []string{"DatabaseService"}}

	log, _ := testutil.NewLogger("test")
	d, err := NewDownstream("DatabaseService", cfg, nil, log)
	if err != nil {
		t.Fatalf("NewDownstream() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Cache.Stop(context.Background()) })
	if got := d.Client.Pipeline().Settings().RequestsPerSecond; got != 1000 {
		t.Fatalf("initial requests_per_second = %d, want 1000", got)
	}
	d.Watch(loader)

	write(fresh.URL, 500)

	deadline := time.Now().Add(5 * time.Second)
	for {
		var people []struct {
			LastName string `json:"lastName"`
		}
		if err := d.Caller.List(context.Background(), "people", "", &people); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		settings := d.Client.Pipeline().Settings()
		if len(people) == 1 && people[0].LastName == "New" && settings.RequestsPerSecond == 500 {
			if settings.MaxRetryCount != 1 {
				t.Errorf("max_retry_count = %d, want 1", settings.MaxRetryCount)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("configuration change was not picked up: people=%+v settings=%+v", people, settings)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestDownstream_ReloadResilience(t *testing.T) {
	srv := peopleServer(t, `[{"id":1,"lastName":"Lovelace"}]`)
	log, _ := testutil.NewLogger("test")
	cfg := DownstreamConfig{
		Addresses:  map[string]string{"DatabaseService": srv.URL},
		Resilience: resilience.Settings{MaxRetryCount: 1, RequestsPerSecond: 100},
		Discovery:  discovery.Config{Name: "test", Services: []string{"DatabaseService"}},
	}
	d, err := NewDownstream("DatabaseService", cfg, nil, log)
	if err != nil {
		t.Fatalf("NewDownstream() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Cache.Stop(context.Background()) })
	before := d.Client.Pipeline()

	if err := d.ReloadResilience(resilience.Settings{MaxRetryCount: 1, RequestsPerSecond: 100}); err != nil {
		t.Fatalf("ReloadResilience() error = %v", err)
	}
	if d.Client.Pipeline() != before {
		t.Error("unchanged settings should keep the running pipeline")
	}

	if err := d.ReloadResilience(resilience.Settings{MaxRetryCount: 2, RequestsPerSecond: 5}); err != nil {
		t.Fatalf("ReloadResilience() error = %v", err)
	}
	after := d.Client.Pipeline()
	if after == before {
		t.Fatal("changed settings should replace the pipeline")
	}
	got := after.Settings()
	if got.MaxRetryCount != 2 || got.RequestsPerSecond != 5 {
		t.Errorf("Settings() = %+v", got)
	}
	if got.MaxRetryDelay != resilience.DefaultMaxRetryDelay || got.CircuitBreakerFailureRatio != resilience.DefaultCircuitBreakerFailureRatio {
		t.Errorf("missing values should fall back to defaults, got %+v", got)
	}

	var people []struct {
		LastName string `json:"lastName"`
	}
	if err := d.Caller.List(context.Background(), "people", "", &people); err != nil {
		t.Fatalf("List() through the new pipeline error = %v", err)
	}
	if len(people) != 1 {
		t.Errorf("List() = %+v", people)
	}
}

func TestDownstream_LogReady(t *testing.T) {
	srv := peopleServer(t, `[]`)
	log, buf := testutil.NewLogger("test")
	d, err := NewDownstream("DatabaseService", downstreamConfig(map[string]string{"DatabaseService": srv.URL}), nil, log)
	if err != nil {
		t.Fatalf("NewDownstream() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Cache.Stop(context.Background()) })

	if err := d.LogReady(context.Background()); err != nil {
		t.Fatalf("LogReady() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "Endpoint cache ready") || !strings.Contains(out, `"initialized":false`) {
		t.Errorf("before the first sweep: %s", out)
	}

	if err := d.Cache.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := d.LogReady(context.Background()); err != nil {
		t.Fatalf("LogReady() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, `"initialized":true`) || !strings.Contains(out, `"entries":1`) {
		t.Errorf("after the first sweep: %s", out)
	}
}

func TestInitTelemetry(t *testing.T) {
	svc := &config.ServiceConfig{Name: "test-service", Version: "1.0.0", Environment: "test"}
	log, _ := testutil.NewLogger("test")

	t.Run("prometheus", func(t *testing.T) {
		tel, err := InitTelemetry(context.Background(), svc, observability.Config{}, log)
		if err != nil {
			t.Fatalf("InitTelemetry() error = %v", err)
		}
		t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
		if tel.Metrics == nil || tel.Handler == nil {
			t.Fatalf("expected metrics and a handler, got %+v", tel)
		}

		tel.Metrics.RecordOutbound(context.Background(), http.MethodGet, "ok", time.Millisecond)
		rec := httptest.NewRecorder()
		tel.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("metrics status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "go_goroutines") {
			t.Error("expected runtime collectors in the exposition")
		}
	})

	t.Run("none", func(t *testing.T) {
		cfg := observability.Config{Metrics: observability.MetricsConfig{Exporter: observability.ExporterNone}}
		tel, err := InitTelemetry(context.Background(), svc, cfg, log)
		if err != nil {
			t.Fatalf("InitTelemetry() error = %v", err)
		}
		if tel.Metrics != nil || tel.Handler != nil {
			t.Errorf("expected no metrics, got %+v", tel)
		}
		if err := tel.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})

	t.Run("unknown exporter", func(t *testing.T) {
		cfg := observability.Config{Metrics: observability.MetricsConfig{Exporter: "statsd"}}
		if _, err := InitTelemetry(context.Background(), svc, cfg, log); err == nil {
			t.Fatal("expected an error")
		}
	})
}
