package cli

import (
	"github.com/spf13/cobra"

	"jobprep/internal/assessment"
	"jobprep/internal/payment"
	"jobprep/internal/server"
	"jobprep/internal/validation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP service for the browser shell",
	Long: `Start a local HTTP service exposing the toolkit as JSON endpoints:
draft storage and validation, input formatting, assessment sessions, result
reports and donations. GET /health and GET /stats are always open; when
Prometheus is enabled its metrics are served on the configured path.

Every other route honours server.apiKeys (X-API-Key or Bearer token), the
request size limit and the per-IP/per-key rate limiter.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	obs := getObservabilityFromContext(ctx)

	// flags win over the loaded config
	serverCfg := cfg.Server
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		serverCfg.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		serverCfg.Host = host
	}

	drafts, backend, err := openDraftStore(ctx)
	if err != nil {
		return err
	}
	defer closeBackend(backend, logger)

	api := newClient(ctx)
	opts := assessmentOptions(cfg.Assessment)
	sessions := assessment.NewRegistry(func() *assessment.Session {
		return assessment.NewSession(api, opts, logger).WithMetrics(obs.Metrics())
	}, serverCfg.SessionTTL)

	srv := server.NewServer(serverCfg, Version, server.Deps{
		Drafts:        drafts,
		Validator:     validation.New(nil),
		Sessions:      sessions,
		Payments:      payment.NewService(api, logger),
		Upstream:      api,
		Observability: obs,
	}, logger)
	return srv.Start(ctx)
}
