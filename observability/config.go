package observability

import (
	"fmt"
	"slices"
	"time"
)

// Metric exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterNone       = "none"
)

// Config selects how a binary exports traces and metrics.
type Config struct {
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig picks the metric exporter. Prometheus serves /metrics from
// the service's own HTTP server; OTLP pushes periodically.
type MetricsConfig struct {
	Exporter string        `yaml:"exporter" mapstructure:"exporter"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Metrics.Exporter == "" {
		c.Metrics.Exporter = ExporterPrometheus
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

// Validate checks the exporter selection and sample rate.
func (c *Config) Validate() error {
	exporters := []string{ExporterPrometheus, ExporterOTLP, ExporterNone}
	if !slices.Contains(exporters, c.Metrics.Exporter) {
		return fmt.Errorf("observability.metrics.exporter must be one of %v (got: %s)", exporters, c.Metrics.Exporter)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("observability.tracing.sample_rate must be within [0,1] (got: %v)", c.Tracing.SampleRate)
	}
	return nil
}
