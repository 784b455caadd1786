// Package server assembles the reference remote store: routes, middleware
// and the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/datasync/internal/config"
	"github.com/iudanet/datasync/internal/server/handlers"
	"github.com/iudanet/datasync/internal/server/middleware"
)

// Server serves the remote sync API
type Server struct {
	http    *http.Server
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	cfg     config.Server
}

// New builds the HTTP server over storage. db is used by the health check
// and may be nil.
func New(cfg config.Server, storage handlers.DatasetStorage, db handlers.Pinger, version string, logger *slog.Logger) *Server {
	s := &Server{
		logger: logger,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	handlers.Routes(mux,
		handlers.NewDatasetHandler(logger, storage),
		handlers.NewHealthHandler(logger, db, version))

	// Порядок: recovery -> rate limit -> logging -> mux
	var h http.Handler = mux
	h = middleware.AccessLog(logger, "/api/v1/health")(h)
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger)
		h = middleware.RateLimitMiddleware(s.limiter)(h)
	}
	h = middleware.RecoveryMiddleware(logger)(h)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server started", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server", "timeout", s.cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
