package nats_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"journal/internal/config"
	"journal/internal/core"
	"journal/internal/nats"
)

// Runs against a real server: NATS_URL=nats://localhost:4222 go test ./internal/nats
func TestDrafts(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL is not set")
	}

	d := &nats.Drafts{
		Logger: slog.Default(),
		Config: &config.Config{NATSURL: url, NATSInit: true},
	}
	require.NoError(t, d.Init(t.Context()))
	t.Cleanup(func() { _ = d.Shutdown(t.Context()) })
	require.NoError(t, d.HealthCheck(t.Context()))

	var store core.DraftStore = d
	ctx := t.Context()
	key := "draft.test-" + t.Name()

	body, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.Empty(t, body)

	require.NoError(t, store.Save(ctx, key, "Grateful for rain"))
	body, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "Grateful for rain", body)

	require.NoError(t, store.Delete(ctx, key))
	body, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.Empty(t, body)
}
