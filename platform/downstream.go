package platform

import (
	"context"
	"sync"

	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/discovery"
	"github.com/MrEdHardy/schleuben/facade"
	"github.com/MrEdHardy/schleuben/httpclient"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/resilience"
)

// Downstream is the call stack towards the services a binary depends on:
// one resilience pipeline and HTTP client, one endpoint cache and the
// caller combining them.
type Downstream struct {
	Cache  *discovery.EndpointCache
	Client *httpclient.Client
	Caller *facade.Caller

	openAPIPath string
	log         *logger.Logger

	mu          sync.Mutex
	newPipeline func(resilience.Settings) *resilience.Pipeline[*httpclient.Response]
}

// NewDownstream builds the stack. name labels the pipeline and the caller's
// error messages, e.g. "DatabaseService". metrics may be nil.
func NewDownstream(name string, cfg DownstreamConfig, metrics *observability.Metrics, log *logger.Logger) (*Downstream, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	observer := resilience.Observers(
		observability.NewLogObserver(log),
		observability.NewResilienceObserver(metrics),
	)
	attemptTimeout := cfg.AttemptTimeout
	newPipeline := func(settings resilience.Settings) *resilience.Pipeline[*httpclient.Response] {
		return resilience.NewPipeline[*httpclient.Response](name, settings,
			resilience.WithObserver(observer),
			resilience.WithAttemptTimeout(attemptTimeout),
		)
	}
	client, err := httpclient.New(cfg.HTTPClient,
		httpclient.WithPipeline(newPipeline(cfg.Resilience)),
		httpclient.WithLogger(log),
		httpclient.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	cache := discovery.NewEndpointCache(cfg.Discovery,
		discovery.NewAddressTable(cfg.Addresses, cfg.Discovery.OpenAPIPath),
		discovery.NewOpenAPIFetcher(client),
		discovery.WithLogger(log),
		discovery.WithMetrics(metrics),
	)

	return &Downstream{
		Cache:       cache,
		Client:      client,
		Caller:      facade.New(name, cache, client, facade.WithLogger(log)),
		openAPIPath: cfg.Discovery.OpenAPIPath,
		log:         log,
		newPipeline: newPipeline,
	}, nil
}

// Reload swaps in the addresses from a changed configuration. Discovered
// templates are kept and resolve against the new addresses.
func (d *Downstream) Reload(addresses map[string]string) {
	d.Cache.SetAddresses(discovery.NewAddressTable(addresses, d.openAPIPath))
	d.log.Info("Service addresses reloaded", logger.Fields("services", len(addresses)))
}

// LogReady reports the endpoint cache state once the app is about to serve.
// It fits bootstrap's OnReady hook.
func (d *Downstream) LogReady(context.Context) error {
	fields := logger.Fields(logger.FieldEntries, len(d.Cache.Entries()), "initialized", d.Cache.Initialized())
	if d.Cache.Initialized() {
		fields["refreshed_at"] = d.Cache.LastRefreshedAt()
	}
	d.log.Info("Endpoint cache ready", fields)
	return nil
}

// ReloadResilience rebuilds the pipeline when settings differ from the
// active ones. Missing values fall back to their defaults; invalid settings
// keep the current pipeline. The new pipeline starts with fresh limiter and
// breaker state.
func (d *Downstream) ReloadResilience(settings resilience.Settings) error {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if current := d.Client.Pipeline(); current != nil && current.Settings() == settings {
		return nil
	}
	d.Client.SetPipeline(d.newPipeline(settings))
	d.log.Info("Resilience settings reloaded", logger.Fields(
		"max_retry_count", settings.MaxRetryCount,
		"max_retry_delay", settings.MaxRetryDelay.String(),
		"circuit_breaker_failure_ratio", settings.CircuitBreakerFailureRatio,
		"requests_per_second", settings.RequestsPerSecond,
	))
	return nil
}

// Watch re-reads the "addresses" and "resilience" sections every time
// loader's file changes.
func (d *Downstream) Watch(loader *config.Loader) {
	loader.Watch(func() {
		var fresh struct {
			Addresses  map[string]string   `mapstructure:"addresses"`
			Resilience resilience.Settings `mapstructure:"resilience"`
		}
		if err := loader.Unmarshal(&fresh); err != nil {
			d.log.Error("Reloading configuration failed", logger.Fields(logger.FieldError, err.Error()))
			return
		}
		d.Reload(fresh.Addresses)
		if err := d.ReloadResilience(fresh.Resilience); err != nil {
			d.log.Error("Reloading resilience settings failed", logger.Fields(logger.FieldError, err.Error()))
		}
	})
}
