package main

import (
	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/server"
	"github.com/MrEdHardy/schleuben/version"
)

// Config is the mutable-service configuration.
type Config struct {
	config.ServiceConfig      `yaml:",inline" mapstructure:",squash"`
	platform.DownstreamConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	if len(c.Discovery.Services) == 0 {
		c.Discovery.Services = []string{databaseService}
	}
	c.ServiceConfig.ApplyDefaults()
	c.DownstreamConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.DownstreamConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
