package httpclient

import (
	"fmt"
	"time"

	"github.com/MrEdHardy/schleuben/security"
)

const (
	defaultTimeout             = 2 * time.Minute
	defaultMaxIdleConnsPerHost = 16
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout caps a whole attempt including reading the body. Attempt
	// timeouts from the resilience pipeline are normally shorter.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxIdleConnsPerHost sizes the keep-alive pool per downstream.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// TLS verifies https downstreams.
	TLS security.ClientTLS `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}
