package main

import (
	"time"

	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/version"
)

const (
	readOnlyService = "ReadOnlyService"
	mutableService  = "MutableService"

	defaultRefreshInterval = 5 * time.Minute
)

// Config is the schleubenctl configuration. The endpoint cache is always
// role-tagged, so reads and writes resolve against their own service.
type Config struct {
	config.ServiceConfig      `yaml:",inline" mapstructure:",squash"`
	platform.DownstreamConfig `yaml:",inline" mapstructure:",squash"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "schleubenctl"
	}
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	if c.Discovery.Name == "" {
		c.Discovery.Name = "ui"
	}
	if len(c.Discovery.Services) == 0 {
		c.Discovery.Services = []string{readOnlyService, mutableService}
	}
	if c.Discovery.RefreshInterval <= 0 {
		c.Discovery.RefreshInterval = defaultRefreshInterval
	}
	c.Discovery.RoleTagged = true
	c.ServiceConfig.ApplyDefaults()
	c.DownstreamConfig.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.DownstreamConfig.Validate()
}
