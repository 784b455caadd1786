// Package cli implements the datasync command line client.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/datasync/internal/client/api"
	"github.com/iudanet/datasync/internal/client/engine"
	"github.com/iudanet/datasync/internal/client/iocli"
	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/config"
)

// EngineOpener creates the sync engine for a command
type EngineOpener func(ctx context.Context, cfg config.Client, logger *slog.Logger) (*engine.Engine, error)

// DefaultOpener talks to the server at cfg.ServerURL over HTTP
func DefaultOpener(ctx context.Context, cfg config.Client, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(ctx, cfg, api.NewClient(cfg.ServerURL, cfg.RequestTimeout), logger)
}

// BuildInfo is printed by the version command
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Cli holds the state shared by commands
type Cli struct {
	io     iocli.IO
	open   EngineOpener
	stderr io.Writer
	logger *slog.Logger
	build  BuildInfo
	cfg    config.Client
	flags  globalFlags
}

type globalFlags struct {
	configPath      string
	serverURL       string
	dbPath          string
	storageStrategy string
	logLevel        string
}

// New creates a CLI. Logs go to stderr.
func New(stdio iocli.IO, open EngineOpener, stderr io.Writer, build BuildInfo) *Cli {
	return &Cli{
		io:     stdio,
		open:   open,
		stderr: stderr,
		build:  build,
		cfg:    config.DefaultClient(),
		logger: slog.New(slog.NewTextHandler(stderr, nil)),
	}
}

// Execute runs the command line args
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(c.io)
	root.SetErr(c.stderr)
	return root.ExecuteContext(ctx)
}

func (c *Cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "datasync",
		Short: "Offline-first dataset synchronisation client",
		Long: `datasync keeps local copies of datasets and synchronises them with a
remote datasync server. Local changes are accepted offline and pushed
on the next sync cycle.

The passphrase for an encrypted local store is read from ` + config.PassphraseEnv + `
or prompted for.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "path to YAML config file")
	pf.StringVar(&c.flags.serverURL, "server", config.DefaultServerURL, "server URL")
	pf.StringVar(&c.flags.dbPath, "db", config.DefaultStoragePath, "path to local database")
	pf.StringVar(&c.flags.storageStrategy, "storage", config.DefaultStorageStrategy, "local storage: bolt or memory")
	pf.StringVar(&c.flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		c.runCommand(),
		c.syncCommand(),
		c.createCommand(),
		c.readCommand(),
		c.updateCommand(),
		c.deleteCommand(),
		c.listCommand(),
		c.statusCommand(),
		c.uidCommand(),
		c.dropCommand(),
		c.versionCommand(),
	)

	return root
}

// loadConfig применяет конфиг-файл, затем явно заданные флаги
func (c *Cli) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient(c.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") || c.flags.configPath == "" {
		cfg.ServerURL = c.flags.serverURL
	}
	if flags.Changed("db") || c.flags.configPath == "" {
		cfg.StoragePath = c.flags.dbPath
	}
	if flags.Changed("storage") || c.flags.configPath == "" {
		cfg.StorageStrategy = c.flags.storageStrategy
	}
	if flags.Changed("log-level") || c.flags.configPath == "" {
		cfg.LogLevel = c.flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	c.cfg = cfg
	return nil
}

// openEngine открывает движок; для зашифрованного хранилища без
// пароля в окружении запрашивает пароль
func (c *Cli) openEngine(ctx context.Context) (*engine.Engine, error) {
	e, err := c.open(ctx, c.cfg, c.logger)
	if err == nil || !errors.Is(err, storage.ErrPassphraseRequired) || c.cfg.Passphrase != "" {
		return e, err
	}

	passphrase, perr := c.io.ReadPassword("Storage passphrase: ")
	if perr != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", perr)
	}
	if passphrase == "" {
		return nil, storage.ErrPassphraseRequired
	}

	c.cfg.Passphrase = passphrase
	return c.open(ctx, c.cfg, c.logger)
}

// withDataset открывает движок, подключает датасет без автоматической
// синхронизации и вызывает fn
func (c *Cli) withDataset(ctx context.Context, dataset string, fn func(e *engine.Engine) error) (err error) {
	e, err := c.openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := e.Manage(ctx, dataset, engine.WithManualSync()); err != nil {
		return err
	}

	return fn(e)
}

// printJSON выводит v как JSON; в терминал - с отступами
func (c *Cli) printJSON(v any) error {
	var (
		out []byte
		err error
	)
	if c.io.IsTerminal() {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = c.io.Write(append(out, '\n'))
	return err
}
