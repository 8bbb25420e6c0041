// HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default HTTP server configuration.
// WriteTimeout is zero because the SSE endpoint holds responses open.
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8808,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	config  Config
	http    *http.Server
	closers []io.Closer
}

// NewServer creates an HTTP server for the given handler. Closers are
// closed during Shutdown, after the listener has drained.
func NewServer(handler http.Handler, config Config, closers ...io.Closer) *Server {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		config:  config,
		http:    httpServer,
		closers: closers,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("http server shutting down")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			return fmt.Errorf("resource close error: %w", err)
		}
	}
	return nil
}
