// Command database-service owns the people database and exposes it over
// HTTP, together with the capability document the gateways discover their
// routes from.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/MrEdHardy/schleuben/bootstrap"
	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/database"
	"github.com/MrEdHardy/schleuben/dataservice"
	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/server"
)

const serviceName = "database-service"

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
	var cfg Config
	err := config.LoadConfig(serviceName, &cfg,
		config.WithConfigFile(configFile),
		config.WithEnvFile(envFile),
	)
	if err != nil {
		return err
	}
	app, _, err := newApp(ctx, &cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

// newApp wires the database, the HTTP routes and telemetry into an app
// ready to run.
func newApp(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	tel, err := platform.InitTelemetry(ctx, &cfg.ServiceConfig, cfg.Observability, app.Logger)
	if err != nil {
		return nil, nil, err
	}
	app.OnStop(tel.Shutdown)

	db := database.NewComponent(cfg.Database, app.Logger).WithAutoMigrate(entity.Models()...)
	srv := server.New(cfg.Server, app.Logger, server.WithMetrics(tel.Metrics))
	dataservice.NewHandler(db.Repository(), app.Logger).Register(srv.Engine())
	srv.RegisterSystemEndpoints(cfg.Name, cfg.Version, app.Components.HealthAll, tel.Handler)

	if err := app.RegisterComponent(db); err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(srv); err != nil {
		return nil, nil, err
	}
	return app, srv, nil
}
