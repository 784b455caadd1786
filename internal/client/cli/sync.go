package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/datasync/internal/client/engine"
	"github.com/iudanet/datasync/internal/client/events"
)

var errNotConfirmed = errors.New("drop cancelled")

func (c *Cli) runCommand() *cobra.Command {
	var frequency time.Duration

	cmd := &cobra.Command{
		Use:   "run <dataset>...",
		Short: "Keep datasets in sync until interrupted",
		Long: `Run manages the given datasets and synchronises them on a timer until
the process receives SIGINT or SIGTERM. Engine events are printed to
standard output as JSON lines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			e, err := c.openEngine(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := e.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
					err = cerr
				}
			}()

			unsubscribe := e.Notify(c.printEvent)
			defer unsubscribe()

			var opts []engine.DatasetOption
			if frequency > 0 {
				opts = append(opts, engine.WithSyncFrequency(frequency))
			}
			for _, id := range args {
				if err := e.Manage(ctx, id, opts...); err != nil {
					return fmt.Errorf("manage %s: %w", id, err)
				}
			}

			c.logger.Info("Syncing datasets", "datasets", args)
			<-ctx.Done()
			c.logger.Info("Stopping")
			return nil
		},
	}

	cmd.Flags().DurationVar(&frequency, "sync-frequency", 0, "interval between sync cycles (default from config)")
	return cmd
}

// printEvent пишет событие одной строкой JSON
func (c *Cli) printEvent(ev events.Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("Failed to encode event", "code", ev.Code, "error", err)
		return
	}
	_, _ = c.io.Write(append(line, '\n'))
}

func (c *Cli) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <dataset>",
		Short: "Run one sync cycle and print the dataset status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				syncErr := e.Sync(cmd.Context(), args[0])
				status, err := e.Status(args[0])
				if err != nil {
					return err
				}
				if err := c.printJSON(status); err != nil {
					return err
				}
				return syncErr
			})
		},
	}
}

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <dataset>",
		Short: "Print the local status of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				status, err := e.Status(args[0])
				if err != nil {
					return err
				}
				return c.printJSON(status)
			})
		},
	}
}

func (c *Cli) uidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uid <dataset> <hash>",
		Short: "Print the server uid of the record with the given hash",
		Long: `Uid prints the uid the server assigned to the record whose content hash
is given, or the hash itself while the record is not yet pushed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDataset(cmd.Context(), args[0], func(e *engine.Engine) error {
				c.io.Println(e.GetUID(args[1]))
				return nil
			})
		},
	}
}

func (c *Cli) dropCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop <dataset>",
		Short: "Delete a dataset locally and on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				answer, err := c.io.ReadInput(fmt.Sprintf("Type %q to delete it everywhere: ", id))
				if err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if answer != id {
					return errNotConfirmed
				}
			}

			return c.withDataset(cmd.Context(), id, func(e *engine.Engine) error {
				if err := e.Drop(cmd.Context(), id); err != nil {
					return err
				}
				c.io.Printf("Dropped %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *Cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// конфиг не нужен
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			c.io.Printf("Datasync Client\nVersion: %s\nBuild date: %s\nGit commit: %s\n",
				c.build.Version, c.build.BuildDate, c.build.GitCommit)
		},
	}
}
