package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/MrEdHardy/schleuben/logger"
)

// DB wraps a gorm database with the service logger.
type DB struct {
	gorm   *gorm.DB
	log    *logger.Logger
	closed bool
	mu     sync.Mutex
}

// Open connects to the sqlite database named by cfg.DSN, retrying with a
// linear backoff until cfg.MaxRetries attempts failed or ctx is done.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newQueryLogger(log, slowThreshold, queryLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", ctx.Err())
		}

		var db *gorm.DB
		db, err = connect(ctx, cfg, gormCfg)
		if err == nil {
			log.Info("Database connection established", map[string]interface{}{
				"dsn":     cfg.DSN,
				"attempt": attempt,
			})
			return &DB{gorm: db, log: log}, nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			log.Warn("Database connection attempt failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
			if waitErr := contextSleep(ctx, backoff); waitErr != nil {
				return nil, fmt.Errorf("database connection canceled during retry: %w", waitErr)
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
}

func connect(ctx context.Context, cfg Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(cfg.DSN)), gormCfg)
	if err != nil {
		return nil, err
	}
	if cfg.Tracing {
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DSN))); err != nil {
			return nil, fmt.Errorf("attach tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	return db, nil
}

// withForeignKeys turns on sqlite's foreign key enforcement for every
// connection the driver opens.
func withForeignKeys(dsn string) string {
	const pragma = "_foreign_keys=on"
	if strings.Contains(dsn, pragma) {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragma
	}
	return dsn + "?" + pragma
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close closes the underlying connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the database connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a gorm session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}

// AutoMigrate creates or updates the tables for models.
func (d *DB) AutoMigrate(models ...any) error {
	d.log.Info("Running auto-migration", map[string]interface{}{"models": len(models)})
	for _, model := range models {
		if err := d.gorm.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// Transaction runs fn inside a transaction scoped to ctx.
func (d *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Stats is a snapshot of the connection pool.
type Stats struct {
	Latency    time.Duration
	OpenConns  int
	InUseConns int
	IdleConns  int
}

// CheckHealth pings the database and reports pool statistics.
func (d *DB) CheckHealth(ctx context.Context) (Stats, error) {
	start := time.Now()
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return Stats{}, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Stats{Latency: time.Since(start)}, err
	}
	s := sqlDB.Stats()
	return Stats{
		Latency:    time.Since(start),
		OpenConns:  s.OpenConnections,
		InUseConns: s.InUse,
		IdleConns:  s.Idle,
	}, nil
}
