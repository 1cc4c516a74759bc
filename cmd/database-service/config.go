package main

import (
	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/database"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/server"
	"github.com/MrEdHardy/schleuben/version"
)

// Config is the database-service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Database.Tracing = c.Observability.Tracing.Enabled
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
