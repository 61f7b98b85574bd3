package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"journal/internal/config"
	"journal/internal/core"
)

func TestGateway(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"a","body":"Grateful","author":null}],"next_cursor":null}`))
	})
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Post not found"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := &Gateway{
		Logger: slog.Default(),
		Config: &config.Config{APIURL: srv.URL, Timeout: time.Second},
	}
	require.NoError(t, g.Init(t.Context()))
	t.Cleanup(func() { _ = g.Shutdown(t.Context()) })

	var api core.API = g

	page, err := api.GetPosts(t.Context(), "", 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.True(t, page.Items[0].Removed())

	_, err = api.GetPost(t.Context(), "0b7f6f3e-9f5c-4a59-8d0a-6a1f2d3c4e5f")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.Equal(t, 2, testutil.CollectAndCount(requestDuration))
}

func TestGateway_NoRetries(t *testing.T) {
	var calls int

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := &Gateway{
		Logger: slog.Default(),
		Config: &config.Config{APIURL: srv.URL, Timeout: time.Second},
	}
	require.NoError(t, g.Init(t.Context()))
	t.Cleanup(func() { _ = g.Shutdown(t.Context()) })

	_, err := g.GetUser(t.Context(), "u1")
	require.ErrorIs(t, err, core.ErrTransport)
	require.Equal(t, 1, calls)
}
