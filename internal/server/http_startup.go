package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	shutdownTimeout = 30 * time.Second
	pruneInterval   = time.Minute
)

// Handler returns the full handler chain: otelhttp around the routed mux.
func (s *Server) Handler() http.Handler {
	return s.deps.Observability.HTTPMiddleware()(s.setupRoutes())
}

// Start listens on Host:Port and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}

	s.displayServerInfo(ln.Addr().String())

	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	pruneDone := make(chan struct{})
	go s.pruneSessions(pruneCtx, pruneDone)

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		stopPrune()
		<-pruneDone
		s.cleanupRateLimiter()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Context canceled, starting graceful shutdown")
		err := s.performGracefulShutdown(httpServer)
		<-pruneDone
		return err
	}
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}
	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// pruneSessions drops idle assessment sessions until ctx ends.
func (s *Server) pruneSessions(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	if s.deps.Sessions == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.deps.Sessions.Prune(); n > 0 {
				s.Logger.Debug("Pruned idle assessment sessions", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Debug("Rate limiter cleaned up")
	}
}
