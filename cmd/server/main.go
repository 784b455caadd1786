package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/datasync/internal/config"
	"github.com/iudanet/datasync/internal/server"
	"github.com/iudanet/datasync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg := config.DefaultServer()

	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per client per rate window (0 disables)")
	flag.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "Rate limit window")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Server) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	logger.Info("Datasync server starting",
		"version", Version,
		"addr", cfg.Addr,
		"db", cfg.DBPath,
		"rate_limit", cfg.RateLimit)

	return server.New(cfg, storage, storage, Version, logger).Run(ctx)
}

func printVersion() {
	fmt.Printf("Datasync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
