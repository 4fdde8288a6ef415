// Package httpapi exposes open sessions over HTTP for the browser sandbox.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doeshing/retrace/internal/application/session"
	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/pkg/logger"
	"github.com/doeshing/retrace/internal/ports"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Options configures the HTTP surface.
type Options struct {
	Addr              string
	AllowedOrigins    []string
	AttemptsPerSecond float64
	AttemptBurst      int
}

// OptionsFromConfig reads the server section of the config.
func OptionsFromConfig(cfg domain.Config) Options {
	rps, burst := cfg.GetAttemptRate()
	return Options{
		Addr:              cfg.GetServerAddr(),
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		AttemptsPerSecond: rps,
		AttemptBurst:      burst,
	}
}

// Server serves the session API.
type Server struct {
	manager  *session.Manager
	log      ports.Logger
	opts     Options
	limiters *sessionLimiters
	handler  http.Handler
}

// NewServer builds the router. Call Handler for tests or ListenAndServe to run.
func NewServer(manager *session.Manager, log ports.Logger, opts Options) (*Server, error) {
	if manager == nil {
		return nil, errors.New("httpapi.Server dependencies not satisfied")
	}
	if log == nil {
		log = logger.Nop{}
	}
	if opts.Addr == "" {
		opts.Addr = domain.DefaultServerAddr
	}
	if opts.AttemptsPerSecond <= 0 {
		opts.AttemptsPerSecond = domain.DefaultAttemptsPerSecond
	}
	if opts.AttemptBurst <= 0 {
		opts.AttemptBurst = domain.DefaultAttemptBurst
	}

	s := &Server{
		manager:  manager,
		log:      log,
		opts:     opts,
		limiters: newSessionLimiters(opts.AttemptsPerSecond, opts.AttemptBurst),
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ListenAndServe runs until ctx is cancelled, then shuts down and closes every
// open session so its artifact is archived.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go s.limiters.cleanup(ctx, limiterCleanupInterval, limiterEntryTTL)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", map[string]interface{}{"addr": s.opts.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown", map[string]interface{}{"error": err.Error()})
	}
	err := s.manager.CloseAll(shutdownCtx)
	s.limiters.reset()
	if err != nil {
		return fmt.Errorf("close sessions: %w", err)
	}
	return nil
}
