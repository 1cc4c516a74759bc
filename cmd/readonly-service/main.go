// Command readonly-service answers read requests for people, addresses and
// telephone connections by forwarding them to whichever database service
// endpoint the discovery cache resolves.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/MrEdHardy/schleuben/bootstrap"
	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/readservice"
	"github.com/MrEdHardy/schleuben/server"
)

const (
	serviceName     = "readonly-service"
	databaseService = "DatabaseService"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to config.yml")
	envFile := pflag.String("env-file", "", "path to a .env file")
	pflag.Parse()

	if err := run(context.Background(), *configFile, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, envFile string) error {
	loader, err := config.NewLoader(serviceName,
		config.WithConfigFile(configFile),
		config.WithEnvFile(envFile),
	)
	if err != nil {
		return err
	}
	var cfg Config
	if err := loader.Unmarshal(&cfg); err != nil {
		return err
	}
	app, d, _, err := newApp(ctx, &cfg)
	if err != nil {
		return err
	}
	app.OnStart(func(context.Context) error {
		d.Watch(loader)
		return nil
	})
	return app.Run(ctx)
}

// newApp wires the discovery cache, the call pipeline and the HTTP routes
// into an app ready to run.
func newApp(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *platform.Downstream, *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	tel, err := platform.InitTelemetry(ctx, &cfg.ServiceConfig, cfg.Observability, app.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	app.OnStop(tel.Shutdown)

	d, err := platform.NewDownstream(databaseService, cfg.DownstreamConfig, tel.Metrics, app.Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	srv := server.New(cfg.Server, app.Logger, server.WithMetrics(tel.Metrics))
	readservice.NewHandler(d.Caller).Register(srv.Engine())
	srv.RegisterSystemEndpoints(cfg.Name, cfg.Version, app.Components.HealthAll, tel.Handler)

	app.OnReady(d.LogReady)

	if err := app.RegisterComponent(d.Cache); err != nil {
		return nil, nil, nil, err
	}
	if err := app.RegisterComponent(srv); err != nil {
		return nil, nil, nil, err
	}
	return app, d, srv, nil
}
