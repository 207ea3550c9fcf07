// Package httpserver wraps the standard HTTP server with lifecycle hooks.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/config"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Server runs the API listener.
type Server struct {
	srv             *http.Server
	log             *logger.Logger
	shutdownTimeout time.Duration
}

// New creates a server around the given handler.
func New(cfg config.ServerConfig, log *logger.Logger, handler http.Handler) *Server {
	if log == nil {
		log = logger.NewDefault("httpserver")
	}
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Address(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log:             log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.log.WithField("addr", s.srv.Addr).Info("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	s.log.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
