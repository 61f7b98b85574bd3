// Package metrics exposes the process metrics over HTTP.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zhulik/pal"

	"journal/internal/config"
	"journal/internal/core"
)

const healthTimeout = time.Second

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HTTPServer serves /metrics and /health. Health fails when the draft
// store cannot reach its backend.
type HTTPServer struct {
	Logger *slog.Logger
	Config *config.Config
	Drafts core.DraftStore

	srv *http.Server
	ln  net.Listener
}

func (s *HTTPServer) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.health)

	s.srv = &http.Server{
		Addr:              s.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	return nil
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	checker, ok := s.Drafts.(healthChecker)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := checker.HealthCheck(ctx); err != nil {
		s.Logger.Warn("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) RunConfig() pal.RunConfig {
	return pal.RunConfig{
		Wait: false,
	}
}

func (s *HTTPServer) Run(_ context.Context) error {
	s.Logger.Info("Starting metrics server", "addr", s.Addr())

	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Addr is the address the server listens on, useful when the port was chosen by the system.
func (s *HTTPServer) Addr() string {
	return s.ln.Addr().String()
}
