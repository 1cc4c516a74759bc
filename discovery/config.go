package discovery

import (
	"fmt"
	"time"
)

const (
	// DefaultOpenAPIPath is where every service in this system serves its
	// capability document.
	DefaultOpenAPIPath = "/openapi/v1.json"

	// DefaultRefreshInterval suits caches inside the façade services.
	DefaultRefreshInterval = time.Minute
)

// Config controls one endpoint cache.
type Config struct {
	// Name labels the cache in logs and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// Services lists the logical services swept for capabilities.
	Services []string `yaml:"services" mapstructure:"services"`

	// RoleTagged prefixes every registry key with "<service>_" so that
	// same-named operations of different services stay apart.
	RoleTagged bool `yaml:"role_tagged" mapstructure:"role_tagged"`

	// OpenAPIPath is the capability document path used when a service has
	// no "<service>_OpenApiPath" address entry.
	OpenAPIPath string `yaml:"openapi_path" mapstructure:"openapi_path"`

	// RefreshInterval is the period of the background sweep.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// WarmUp runs the first sweep when the cache starts instead of on the
	// first lookup. A failed warm-up is logged, not fatal.
	WarmUp bool `yaml:"warm_up" mapstructure:"warm_up"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "endpoints"
	}
	if c.OpenAPIPath == "" {
		c.OpenAPIPath = DefaultOpenAPIPath
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
}

// Validate checks that required fields are present and consistent.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("discovery.services must name at least one service")
	}
	seen := make(map[string]bool, len(c.Services))
	for _, s := range c.Services {
		if s == "" {
			return fmt.Errorf("discovery.services contains an empty name")
		}
		if seen[normalize(s)] {
			return fmt.Errorf("discovery.services lists %q twice", s)
		}
		seen[normalize(s)] = true
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("discovery.refresh_interval must be positive (got: %s)", c.RefreshInterval)
	}
	return nil
}
