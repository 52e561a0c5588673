// Package api provides the relay's operational HTTP endpoint.
//
// It serves Prometheus metrics, a health check reflecting the TTN
// session state and a read-only listing of the configured sensors:
//
//	GET /health          200 while subscribed, 503 otherwise
//	GET /metrics         Prometheus exposition
//	GET /api/v1/sensors  configured sensors
//
// Usage:
//
//	server, err := api.New(deps)
//	err = server.Run(ctx) // blocks until ctx is cancelled
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/ttn-relay/internal/sensor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 5 * time.Second

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// ConnectionState reports the TTN session state. *mqtt.Manager implements it.
type ConnectionState interface {
	State() mqtt.State
}

// Deps holds the dependencies required by the server.
type Deps struct {
	Config     config.MetricsConfig
	Logger     *logging.Logger
	Registry   *sensor.Registry
	Connection ConnectionState
	Version    string
}

// Server is the operational HTTP server.
type Server struct {
	cfg        config.MetricsConfig
	logger     *logging.Logger
	registry   *sensor.Registry
	connection ConnectionState
	version    string

	mu sync.Mutex
	ln net.Listener
}

// New creates a new server with the given dependencies.
// The server is not started until Run is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("sensor registry is required")
	}
	if deps.Connection == nil {
		return nil, fmt.Errorf("connection state is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		registry:   deps.Registry,
		connection: deps.Connection,
		version:    deps.Version,
	}, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Run listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		ln.Close()
		return fmt.Errorf("ops server already listening on %s", s.ln.Addr())
	}
	s.ln = ln
	return nil
}

// Serve serves on the listener bound by Listen until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("ops server: Serve called before Listen")
	}

	server := &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()
	s.logger.Info("ops server listening", "address", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("ops server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down ops server: %w", err)
	}
	return nil
}

// Addr returns the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
