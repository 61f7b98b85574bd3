package metrics_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"journal/internal/compose"
	"journal/internal/config"
	"journal/internal/core"
	"journal/internal/metrics"
)

type unhealthyStore struct {
	compose.MemoryStore
	err error
}

func (s *unhealthyStore) HealthCheck(context.Context) error {
	return s.err
}

func serve(t *testing.T, srv *metrics.HTTPServer) {
	t.Helper()

	srv.Logger = slog.Default()
	srv.Config = &config.Config{MetricsAddr: "127.0.0.1:0"}
	require.NoError(t, srv.Init(t.Context()))

	done := make(chan error, 1)
	go func() { done <- srv.Run(t.Context()) }()
	t.Cleanup(func() {
		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, <-done)
	})
}

func healthStatus(t *testing.T, srv *metrics.HTTPServer) int {
	t.Helper()

	res, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	_ = res.Body.Close()
	return res.StatusCode
}

func TestHTTPServer_Health(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		drafts core.DraftStore
		want   int
	}{
		{"in-memory drafts", &compose.MemoryStore{}, http.StatusOK},
		{"reachable backend", &unhealthyStore{}, http.StatusOK},
		{"unreachable backend", &unhealthyStore{err: errors.New("nats: connection closed")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := &metrics.HTTPServer{Drafts: tt.drafts}
			serve(t, srv)

			require.Equal(t, tt.want, healthStatus(t, srv))
		})
	}
}

func TestHTTPServer(t *testing.T) {
	t.Parallel()

	srv := &metrics.HTTPServer{
		Logger: slog.Default(),
		Config: &config.Config{MetricsAddr: "127.0.0.1:0"},
	}
	require.NoError(t, srv.Init(t.Context()))

	done := make(chan error, 1)
	go func() { done <- srv.Run(t.Context()) }()

	res, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	_ = res.Body.Close()

	res, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_ = res.Body.Close()
	require.Contains(t, string(body), "go_goroutines")

	require.NoError(t, srv.Shutdown(t.Context()))
	require.NoError(t, <-done)
}
