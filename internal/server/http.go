package server

import (
	"io"
	"os"
	"time"

	"jobprep/internal/assessment"
	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/observability"
	"jobprep/internal/payment"
	"jobprep/internal/storage"
	"jobprep/internal/validation"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Upstream reports on the career backend client.
type Upstream interface {
	Stats() map[string]any
	Healthy() bool
}

// Deps are the domain services the routes expose.
type Deps struct {
	Drafts        *storage.DraftStore
	Validator     *validation.Validator
	Sessions      *assessment.Registry
	Payments      *payment.Service
	Upstream      Upstream
	Observability *observability.Manager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64
	SessionTTL     time.Duration

	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	deps   Deps
	out    io.Writer
	Logger *errors.Logger
}

// NewServer creates a Server from the server section of the config.
func NewServer(cfg config.ServerConfig, version string, deps Deps, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	if deps.Validator == nil {
		deps.Validator = validation.New(nil)
	}
	if deps.Observability == nil {
		deps.Observability, _ = observability.NewManager(observability.SettingsFrom(nil, version))
	}

	rl := cfg.RateLimit
	var rateLimiter *LimiterManager
	if rl.Enabled {
		rateLimiter = NewLimiterManager(rl.RequestsPerMin, rl.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		SessionTTL:     cfg.SessionTTL,
		RateLimit:      &rl,
		RateLimiter:    rateLimiter,
		deps:           deps,
		out:            os.Stdout,
		Logger:         logger,
	}
}
