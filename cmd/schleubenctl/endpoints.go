package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/version"
)

func newEndpointsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Show the endpoints discovered from the services' capability documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withBackend(cmd.Context(), func(ctx context.Context, d *platform.Downstream, cfg *Config) error {
				if err := d.Cache.Initialize(ctx); err != nil {
					return err
				}
				entries := d.Cache.Entries()
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.Key, e.Service, e.Template})
				}
				if c.output == outputTable {
					color.New(color.Bold).Fprintf(c.out, "%d endpoints, refreshed %s, next refresh in %s\n",
						len(entries),
						humanize.Time(d.Cache.LastRefreshedAt()),
						cfg.Discovery.RefreshInterval,
					)
				}
				return c.render(entries, []string{"KEY", "SERVICE", "TEMPLATE"}, rows)
			})
		},
	}
}

func newVersionCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			info := version.Get()
			if c.output == outputJSON {
				return c.render(info, nil, nil)
			}
			_, err := fmt.Fprintf(c.out, "schleubenctl %s\n  Go Version: %s\n", info, info.GoVersion)
			return err
		},
	}
}
