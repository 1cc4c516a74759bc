package server

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/MrEdHardy/schleuben/security"
	"github.com/MrEdHardy/schleuben/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string                     `yaml:"host" mapstructure:"host"`
	Port         int                        `yaml:"port" mapstructure:"port"`
	ReadTimeout  int                        `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int                        `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                        `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string                     `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "1MB"
	RateLimit    middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	TLS          security.ServerTLS         `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	c.RateLimit.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if _, err := humanize.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size %q: %w", c.MaxBodySize, err)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("server.%w", err)
	}
	return c.RateLimit.Validate()
}
