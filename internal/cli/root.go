package cli

import (
	"context"
	"fmt"

	"jobprep/internal/client"
	"jobprep/internal/common"
	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/observability"
	"jobprep/internal/storage"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}
type observabilityKeyType struct{}

var (
	configKey        = configKeyType{}
	loggerKey        = loggerKeyType{}
	observabilityKey = observabilityKeyType{}
)

var rootCmd = &cobra.Command{
	Use:   "jobprep",
	Short: "Job preparation toolkit: aptitude assessment, mock interview and résumé tools",
	Long: `jobprep talks to the career backend to run the aptitude assessment,
show job recommendations, hold a mock interview, and check, save and export
a résumé draft. "jobprep serve" exposes the same features to a browser shell.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg, logger and the observability manager
// available to every subcommand through the context.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger, obs *observability.Manager) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	ctx = context.WithValue(ctx, observabilityKey, obs)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

// getObservabilityFromContext never fails; without a manager it returns a disabled one.
func getObservabilityFromContext(ctx context.Context) *observability.Manager {
	if obs, ok := ctx.Value(observabilityKey).(*observability.Manager); ok && obs != nil {
		return obs
	}
	obs, _ := observability.NewManager(observability.SettingsFrom(nil, Version))
	return obs
}

// newClient builds the backend client with request metrics attached.
func newClient(ctx context.Context) *client.Client {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	obs := getObservabilityFromContext(ctx)
	return client.New(cfg.API, logger, client.WithMetrics(obs.Metrics()))
}

// openDraftStore opens the configured backend. The caller closes the backend.
func openDraftStore(ctx context.Context) (*storage.DraftStore, storage.Backend, error) {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, errors.NewStorageError(errors.ErrCodeStorageReadFailed,
			fmt.Sprintf("failed to open %s storage", cfg.Storage.Backend), err)
	}
	if fb, ok := backend.(*storage.FileBackend); ok {
		fb.WithLogger(logger)
	}
	store := storage.NewDraftStore(backend, cfg.Storage.Key, logger).
		WithMetrics(getObservabilityFromContext(ctx).Metrics())
	return store, backend, nil
}

func closeBackend(backend storage.Backend, logger *errors.Logger) {
	if err := backend.Close(); err != nil {
		logger.Warn("Failed to close storage backend", "error", err)
	}
}

// addOutputFlags registers --output and --format on cmd.
func addOutputFlags(cmd *cobra.Command, target *common.CommandConfig) {
	cmd.Flags().StringVarP(&target.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&target.OutputFormat, "format", "", "Output format: json, yaml, text, markdown or xlsx")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutput fills in the format from the file extension or the configured
// default and checks it against app.supportedFormats.
func resolveOutput(ctx context.Context, target *common.CommandConfig) error {
	cfg := getConfigFromContext(ctx)
	target.OutputFormat = common.ResolveFormat(target.OutputFormat, target.OutputFile, cfg.App.DefaultFormat)
	return common.ValidateOutputFormat(target.OutputFormat, cfg.App.SupportedFormats)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(assessmentCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(donateCmd)
	rootCmd.AddCommand(serveCmd)
}
