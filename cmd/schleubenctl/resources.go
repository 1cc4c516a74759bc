package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/platform"
	"github.com/MrEdHardy/schleuben/validation"
)

// resource describes one entity kind as exposed by the gateway services.
// Operations resolve as "<path>", "<path>/getbyid", "<path>/create",
// "<path>/update" and "<path>/delete".
type resource[T any] struct {
	use     string
	aliases []string
	noun    string
	path    string
	header  []string
	row     func(T) []string
	id      func(*T) int
}

var people = resource[entity.Person]{
	use:    "people",
	noun:   "person",
	path:   "people",
	header: []string{"ID", "FIRST NAME", "LAST NAME", "BIRTH DATE", "ADDRESSES", "PHONES"},
	row: func(p entity.Person) []string {
		birth := "-"
		if p.BirthDate != nil {
			birth = p.BirthDate.String()
		}
		return []string{
			strconv.Itoa(p.ID), p.FirstName, p.LastName, birth,
			strconv.Itoa(len(p.Addresses)), strconv.Itoa(len(p.TelephoneConnections)),
		}
	},
	id: func(p *entity.Person) int { return p.ID },
}

var addresses = resource[entity.Address]{
	use:    "addresses",
	noun:   "address",
	path:   "addresses",
	header: []string{"ID", "PERSON", "STREET", "NO", "ZIP", "CITY", "INFO"},
	row: func(a entity.Address) []string {
		info := ""
		if a.AdditionalInfo != nil {
			info = *a.AdditionalInfo
		}
		return []string{
			strconv.Itoa(a.ID), strconv.Itoa(a.PersonID), a.Street, a.HouseNumber, a.ZipCode, a.City, info,
		}
	},
	id: func(a *entity.Address) int { return a.ID },
}

var phones = resource[entity.TelephoneConnection]{
	use:     "phones",
	aliases: []string{"telephone-connections"},
	noun:    "telephone connection",
	path:    "telephone-connections",
	header:  []string{"ID", "PERSON", "NUMBER"},
	row: func(t entity.TelephoneConnection) []string {
		return []string{strconv.Itoa(t.ID), strconv.Itoa(t.PersonID), t.PhoneNumber}
	},
	id: func(t *entity.TelephoneConnection) int { return t.ID },
}

func (r resource[T]) rows(items ...T) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, r.row(item))
	}
	return rows
}

func newResourceCommand[T any](c *cli, r resource[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     r.use,
		Aliases: r.aliases,
		Short:   fmt.Sprintf("List and edit %s records", r.noun),
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: fmt.Sprintf("List every %s", r.noun),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withBackend(cmd.Context(), func(ctx context.Context, d *platform.Downstream, _ *Config) error {
					var items []T
					if err := d.Caller.List(ctx, r.path, readOnlyService, &items); err != nil {
						return err
					}
					return c.render(items, r.header, r.rows(items...))
				})
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: fmt.Sprintf("Show one %s", r.noun),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := validation.ParseID("id", args[0])
				if err != nil {
					return err
				}
				return c.withBackend(cmd.Context(), func(ctx context.Context, d *platform.Downstream, _ *Config) error {
					var item T
					if err := d.Caller.Read(ctx, r.path+"/getbyid", readOnlyService, id, &item); err != nil {
						return err
					}
					return c.render(item, r.header, r.rows(item))
				})
			},
		},
		newWriteCommand(c, r, "create", func(ctx context.Context, d *platform.Downstream, item *T) error {
			var created T
			if err := d.Caller.Create(ctx, r.path+"/create", mutableService, item, &created); err != nil {
				return err
			}
			c.success("created %s %d", r.noun, r.id(&created))
			return c.render(created, r.header, r.rows(created))
		}),
		newWriteCommand(c, r, "update", func(ctx context.Context, d *platform.Downstream, item *T) error {
			if err := validation.New().Min("id", r.id(item), 1).Validate(); err != nil {
				return err
			}
			if err := d.Caller.Update(ctx, r.path+"/update", mutableService, item); err != nil {
				return err
			}
			c.success("updated %s %d", r.noun, r.id(item))
			return nil
		}),
		&cobra.Command{
			Use:   "delete <id>",
			Short: fmt.Sprintf("Delete one %s", r.noun),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := validation.ParseID("id", args[0])
				if err != nil {
					return err
				}
				return c.withBackend(cmd.Context(), func(ctx context.Context, d *platform.Downstream, _ *Config) error {
					if err := d.Caller.Delete(ctx, r.path+"/delete", mutableService, id); err != nil {
						return err
					}
					c.success("deleted %s %d", r.noun, id)
					return nil
				})
			},
		},
	)
	return cmd
}

// newWriteCommand builds a command that decodes and validates a JSON
// payload before handing it to send.
func newWriteCommand[T any](c *cli, r resource[T], verb string, send func(context.Context, *platform.Downstream, *T) error) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("%s a %s from a JSON payload", verb, r.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readBody(data, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var item T
			if err := json.Unmarshal(body, &item); err != nil {
				return errors.InvalidFormat("payload", "JSON "+r.noun).WithCause(err)
			}
			if err := validation.Validate(&item); err != nil {
				return err
			}
			return c.withBackend(cmd.Context(), func(ctx context.Context, d *platform.Downstream, _ *Config) error {
				return send(ctx, d, &item)
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVarP(&file, "file", "f", "", `file holding the JSON payload, "-" for stdin`)
	return cmd
}
