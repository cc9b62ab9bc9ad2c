package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobprep/internal/cli"
	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := errors.NewWithOptions(errors.LogOptions{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
		Compress:   cfg.App.LogCompress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Close() }()

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		return 1
	}

	obs, err := observability.NewManager(observability.SettingsFrom(cfg, cli.Version))
	if err != nil {
		logger.LogError(err, "Failed to initialize observability")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Observability shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting jobprep", append([]any{"version", cli.Version}, cfg.Summary()...)...)

	if err := cli.Execute(ctx, cfg, logger, obs); err != nil {
		logger.LogError(err, "Command failed")
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		return 1
	}
	return 0
}
