package platform

import (
	"fmt"
	"time"

	"github.com/MrEdHardy/schleuben/discovery"
	"github.com/MrEdHardy/schleuben/httpclient"
	"github.com/MrEdHardy/schleuben/resilience"
)

// DownstreamConfig configures how a binary reaches the services behind it.
//
//	addresses:
//	  DatabaseService: http://localhost:5100
//	resilience:
//	  max_retry_count: 3
//	  requests_per_second: 10
//	discovery:
//	  services: [DatabaseService]
//	  refresh_interval: 1m
type DownstreamConfig struct {
	// Addresses maps logical service names to base URIs.
	// "<Service>_OpenApiPath" entries override the capability path.
	Addresses  map[string]string   `yaml:"addresses" mapstructure:"addresses"`
	Resilience resilience.Settings `yaml:"resilience" mapstructure:"resilience"`
	HTTPClient httpclient.Config   `yaml:"http_client" mapstructure:"http_client"`
	Discovery  discovery.Config    `yaml:"discovery" mapstructure:"discovery"`

	// AttemptTimeout bounds a single attempt inside the pipeline.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *DownstreamConfig) ApplyDefaults() {
	c.Resilience.ApplyDefaults()
	c.HTTPClient.ApplyDefaults()
	c.Discovery.ApplyDefaults()
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = resilience.DefaultAttemptTimeout
	}
}

// Validate checks every section and that each discovered service has an
// address.
func (c *DownstreamConfig) Validate() error {
	if err := c.Resilience.Validate(); err != nil {
		return fmt.Errorf("resilience: %w", err)
	}
	if err := c.HTTPClient.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	table := discovery.NewAddressTable(c.Addresses, c.Discovery.OpenAPIPath)
	for _, svc := range c.Discovery.Services {
		if _, err := table.BaseURI(svc); err != nil {
			return fmt.Errorf("addresses: %w", err)
		}
	}
	return nil
}
