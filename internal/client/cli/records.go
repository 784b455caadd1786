package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/datasync/internal/client/engine"
	"github.com/iudanet/datasync/internal/models"
)

var errInvalidJSON = errors.New("data must be a JSON object")

func (c *Cli) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <dataset> <json>",
		Short: "Create a record locally",
		Long: `Create stores a JSON object in the local dataset and queues it for the
server. The printed uid is a local reference until the record is pushed.
Pass - instead of the object to read it from standard input.`,
		Example: `  datasync create notes '{"title":"groceries"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readData(args[1])
			if err != nil {
				return err
			}
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				res, err := e.Create(cmd.Context(), args[0], data)
				if err != nil {
					return err
				}
				return c.printJSON(res)
			})
		},
	}
}

func (c *Cli) readCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read <dataset> <uid>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				rec, err := e.Read(args[0], args[1])
				if err != nil {
					return err
				}
				return c.printJSON(rec)
			})
		},
	}
}

func (c *Cli) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <dataset> <uid> <json>",
		Short: "Replace the data of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.readData(args[2])
			if err != nil {
				return err
			}
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				rec, err := e.Update(cmd.Context(), args[0], args[1], data)
				if err != nil {
					return err
				}
				return c.printJSON(rec)
			})
		},
	}
}

func (c *Cli) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset> <uid>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				if err := e.Delete(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				c.io.Printf("Deleted %s\n", args[1])
				return nil
			})
		},
	}
}

func (c *Cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset>",
		Short: "List local records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				records, err := e.List(args[0])
				if err != nil {
					return err
				}
				return c.printJSON(sortedRecords(records))
			})
		},
	}
}

// sortedRecords упорядочивает записи по времени изменения, затем по uid
func sortedRecords(records map[string]*models.Record) []*models.Record {
	out := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *models.Record) int {
		if n := a.UpdatedAt.Compare(b.UpdatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// readData разбирает JSON объект из аргумента или из stdin для "-"
func (c *Cli) readData(arg string) (map[string]any, error) {
	raw := []byte(arg)
	if arg == "-" {
		input, err := c.io.ReadInput("")
		if err != nil {
			return nil, fmt.Errorf("failed to read data: %w", err)
		}
		raw = []byte(input)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errInvalidJSON
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return data, nil
}
