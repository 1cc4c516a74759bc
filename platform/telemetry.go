package platform

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
)

// Telemetry is the initialized metrics and tracing of one binary.
type Telemetry struct {
	// Metrics is nil when metrics are disabled; a nil *Metrics records nothing.
	Metrics *observability.Metrics
	// Handler serves /metrics when the Prometheus exporter is selected.
	Handler http.Handler

	shutdown []func(context.Context) error
}

// InitTelemetry installs the meter and tracer providers selected by cfg.
func InitTelemetry(ctx context.Context, svc *config.ServiceConfig, cfg observability.Config, log *logger.Logger) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Telemetry{}

	mc := observability.DefaultMeterConfig(svc.Name)
	mc.ServiceVersion = svc.Version
	mc.Environment = svc.Environment
	mc.Endpoint = cfg.Metrics.Endpoint
	mc.Insecure = cfg.Metrics.Insecure
	mc.Interval = cfg.Metrics.Interval

	switch cfg.Metrics.Exporter {
	case observability.ExporterPrometheus:
		mp, h, err := observability.InitPrometheus(mc)
		if err != nil {
			return nil, err
		}
		t.Handler = h
		t.shutdown = append(t.shutdown, mp.Shutdown)
	case observability.ExporterOTLP:
		mp, err := observability.InitMeter(ctx, mc, log)
		if err != nil {
			return nil, err
		}
		t.shutdown = append(t.shutdown, mp.Shutdown)
	}

	if cfg.Metrics.Exporter != observability.ExporterNone {
		m, err := observability.NewMetrics(observability.Meter(svc.Name))
		if err != nil {
			return nil, stderrors.Join(err, t.Shutdown(ctx))
		}
		t.Metrics = m
	}

	if cfg.Tracing.Enabled {
		tc := observability.DefaultTracerConfig(svc.Name)
		tc.ServiceVersion = svc.Version
		tc.Environment = svc.Environment
		tc.Endpoint = cfg.Tracing.Endpoint
		tc.Insecure = cfg.Tracing.Insecure
		tc.SampleRate = cfg.Tracing.SampleRate
		tp, err := observability.InitTracer(ctx, tc, log)
		if err != nil {
			return nil, stderrors.Join(err, t.Shutdown(ctx))
		}
		t.shutdown = append(t.shutdown, tp.Shutdown)
	}
	return t, nil
}

// Shutdown flushes and stops the providers in reverse order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdown[i](ctx))
	}
	t.shutdown = nil
	return stderrors.Join(errs...)
}
