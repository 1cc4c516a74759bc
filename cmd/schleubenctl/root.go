package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MrEdHardy/schleuben/bootstrap"
	"github.com/MrEdHardy/schleuben/config"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/validation"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// cli carries the global flags and the output stream shared by every
// sub-command.
type cli struct {
	configFile string
	envFile    string
	output     string
	out        io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "schleubenctl",
		Short: "Manage people, addresses and telephone connections",
		Long: `schleubenctl talks to the readonly and mutable services. Reads go to
the ReadOnlyService, writes to the MutableService; both are found through
their capability documents.

Examples:
  schleubenctl people list
  schleubenctl people get 3 -o json
  schleubenctl addresses create -d '{"street":"Main St","houseNumber":"1","city":"Springfield","zipCode":"12345","personId":3}'
  schleubenctl endpoints`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := validation.New().
				Required("output", c.output).
				OneOf("output", c.output, []string{outputTable, outputJSON})
			if err := v.Validate(); err != nil {
				return err
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: ./cmd/schleubenctl/config.yml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", ".env file")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", outputTable, "output format: table or json")

	root.AddCommand(
		newResourceCommand(c, people),
		newResourceCommand(c, addresses),
		newResourceCommand(c, phones),
		newEndpointsCommand(c),
		newVersionCommand(c),
	)
	return root
}

func (c *cli) loadConfig() (*Config, error) {
	var cfg Config
	err := config.LoadConfig("schleubenctl", &cfg,
		config.WithConfigFile(c.configFile),
		config.WithEnvFile(c.envFile),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// withBackend runs fn inside an app owning the endpoint cache, so the
// cache's refresh loop is stopped when the command returns.
func (c *cli) withBackend(ctx context.Context, fn func(ctx context.Context, d *platform.Downstream, cfg *Config) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg, bootstrap.WithoutSummary())
	if err != nil {
		return err
	}
	d, err := platform.NewDownstream("backend", cfg.DownstreamConfig, nil, app.Logger)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(d.Cache); err != nil {
		return err
	}
	app.OnConfigure(func(ctx context.Context, _ *bootstrap.App[*Config]) error {
		return d.Cache.Initialize(ctx)
	})
	return app.RunTask(ctx, func(ctx context.Context) error {
		return fn(ctx, d, cfg)
	})
}

// render writes v as indented JSON or as a table of rows.
func (c *cli) render(v any, header []string, rows [][]string) error {
	if c.output == outputJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (c *cli) success(format string, args ...any) {
	if c.output == outputJSON {
		return
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ "+format+"\n", args...)
}

// readBody returns the JSON payload given with --data, or read from the file
// named by --file ("-" reads stdin).
func readBody(data, file string, stdin io.Reader) ([]byte, error) {
	v := validation.New().
		Custom(data == "" || file == "", "payload", "use either --data or --file, not both").
		Custom(data != "" || file != "", "payload", "a JSON payload is required (--data or --file)")
	if err := v.Validate(); err != nil {
		return nil, err
	}
	switch {
	case data != "":
		return []byte(data), nil
	case file == "-":
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(file)
	}
}
