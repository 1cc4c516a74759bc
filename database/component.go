package database

import (
	"context"
	"fmt"

	"github.com/MrEdHardy/schleuben/component"
	"github.com/MrEdHardy/schleuben/logger"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	models []any
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// WithAutoMigrate registers models for auto-migration on Start.
func (c *Component) WithAutoMigrate(models ...any) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// Repository returns a repository over the component's connection. It may
// be created before Start; it must not be used before Start returned.
func (c *Component) Repository() *Repository {
	return &Repository{conn: c.DB}
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and optionally runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := c.db.AutoMigrate(c.models...); err != nil {
			_ = c.db.Close()
			c.db = nil
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	stats, err := c.db.CheckHealth(ctx)
	if err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("latency=%s open=%d", stats.Latency, stats.OpenConns),
	}
}

// Describe returns a one-line summary for the startup log.
func (c *Component) Describe() string {
	details := fmt.Sprintf("sqlite %s pool=%d/%d", c.cfg.DSN, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	if c.cfg.Tracing {
		details += " tracing=on"
	}
	return details
}
