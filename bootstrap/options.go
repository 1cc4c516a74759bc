package bootstrap

import (
	"io"
	"time"

	"github.com/MrEdHardy/schleuben/logger"
)

// Option configures the App during creation. Options are non-generic so
// they work with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	summaryOut      io.Writer
	quiet           bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the logger is initialized
// from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithSummaryOutput redirects the startup summary, stdout by default.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.summaryOut = w
	}
}

// WithoutSummary suppresses the startup summary, e.g. for CLI tools.
func WithoutSummary() Option {
	return func(o *appOptions) {
		o.quiet = true
	}
}
