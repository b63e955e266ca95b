package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReadyCheck reports whether a bus component can take work.
type ReadyCheck func() error

// Server exposes the bus metrics together with liveness and readiness routes.
//
//	/metrics  Prometheus exposition of the registry
//	/health   always 200 while the process serves HTTP
//	/ready    200 when every registered ReadyCheck passes, 503 otherwise
type Server struct {
	server   *http.Server
	logger   *zap.Logger
	registry *Registry

	mu     sync.RWMutex
	checks map[string]ReadyCheck
	addr   net.Addr
}

// ServerConfig holds configuration for the metrics server
type ServerConfig struct {
	Port    int           `env:"METRICS_PORT" envDefault:"9090"`
	Timeout time.Duration `env:"METRICS_TIMEOUT" envDefault:"30s"`
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewServer creates a server for registry. Nothing listens until Start.
func NewServer(config ServerConfig, registry *Registry, logger *zap.Logger) *Server {
	s := &Server{
		logger:   logger.Named("metrics-server"),
		registry: registry,
		checks:   make(map[string]ReadyCheck),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", registry.Handler())
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ready", s.ready)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  config.Timeout * 2,
	}

	return s
}

// AddReadyCheck registers check under name, replacing any previous check
// with the same name.
func (s *Server) AddReadyCheck(name string, check ReadyCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Handler returns the server's routes without listening
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves until ctx is cancelled or serving
// fails. Bind errors are returned right away.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("starting metrics server", zap.Stringer("addr", ln.Addr()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop(context.WithoutCancel(ctx))
	}
}

// Stop gracefully stops the metrics server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping metrics server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to gracefully shutdown metrics server", zap.Error(err))
		return err
	}

	s.logger.Info("metrics server stopped")
	return nil
}

// Addr returns the bound address once Start has listened, the configured one
// before that.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.addr != nil {
		return s.addr.String()
	}
	return s.server.Addr
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, statusResponse{Status: "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	checks := maps.Clone(s.checks)
	s.mu.RUnlock()

	failed := map[string]string{}
	for name, check := range checks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		s.logger.Debug("readiness check failed", zap.Any("checks", failed))
		s.write(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready", Checks: failed})
		return
	}
	s.write(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) write(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("failed to write status response", zap.Error(err))
	}
}
