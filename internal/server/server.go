// Package server exposes the HTTP surface of a running pipeline: probes,
// Prometheus metrics, and read-only access to persisted runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/metrics"
	"github.com/JakeFAU/progress-pipeline/internal/store"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Options wires the server's dependencies. Only Gatherer is required.
type Options struct {
	// Gatherer backs /metrics.
	Gatherer prometheus.Gatherer
	// Registerer receives the HTTP request collectors; nil skips them.
	Registerer prometheus.Registerer
	// Runs enables the /v1/runs endpoints when non-nil.
	Runs   store.EventRepository
	Logger *zap.Logger
}

// Server wires HTTP handlers to the metrics registry and run repository.
type Server struct {
	router chi.Router
	logger *zap.Logger
}

// New constructs a Server with middleware and routes.
func New(opts Options) (*Server, error) {
	if opts.Gatherer == nil {
		return nil, errors.New("server: gatherer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	if opts.Registerer != nil {
		httpMetrics, err := metrics.NewHTTP(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		r.Use(httpMetrics.Middleware)
	}
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", healthz)
	r.Get("/readyz", healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))

	if opts.Runs != nil {
		runs := NewRunHandler(opts.Runs, logger)
		r.Get("/v1/runs/{run_id}", runs.GetRun)
		r.Get("/v1/runs/{run_id}/events", runs.ListEvents)
	}

	return &Server{router: r, logger: logger}, nil
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
