// Package nats keeps composer drafts in a NATS JetStream key-value bucket.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"journal/internal/config"
	"journal/pkg/retry"
)

const (
	Bucket = "journal-drafts"

	draftTTL = 7 * 24 * time.Hour
)

// JetStream may still be starting when the client comes up.
var bucketLookup = retry.Policy{
	Attempts: 3,
	Backoff:  500 * time.Millisecond,
	ShouldRetry: func(err error, _ int) bool {
		return !errors.Is(err, jetstream.ErrBucketNotFound)
	},
}

// Drafts implements core.DraftStore.
type Drafts struct {
	Logger *slog.Logger
	Config *config.Config

	js jetstream.JetStream
	kv jetstream.KeyValue
}

func (d *Drafts) Init(ctx context.Context) error {
	d.Logger = d.Logger.With("component", "nats.Drafts")

	nc, err := libnats.Connect(d.Config.NATSURL, libnats.Name("journal"))
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}
	d.js = js

	if d.Config.NATSInit {
		if err := d.initNATS(ctx); err != nil {
			return err
		}
	}

	kv, err := retry.Value(ctx, bucketLookup, func(ctx context.Context) (jetstream.KeyValue, error) {
		return js.KeyValue(ctx, Bucket)
	})
	if err != nil {
		return fmt.Errorf("draft bucket %s: %w", Bucket, err)
	}
	d.kv = kv

	return nil
}

func (d *Drafts) HealthCheck(context.Context) error {
	_, err := d.js.Conn().RTT()
	return err
}

func (d *Drafts) Shutdown(context.Context) error {
	return d.js.Conn().Drain()
}

func (d *Drafts) initNATS(ctx context.Context) error {
	d.Logger.Info("Initializing NATS")

	_, err := d.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      Bucket,
		Description: "Unsent post and reply drafts",
		TTL:         draftTTL,
	})
	if err != nil {
		return err
	}
	d.Logger.Info("KeyValue created or updated", "name", Bucket)

	return nil
}

// Load returns the saved draft, or an empty string if there is none.
func (d *Drafts) Load(ctx context.Context, key string) (string, error) {
	entry, err := d.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(entry.Value()), nil
}

func (d *Drafts) Save(ctx context.Context, key, body string) error {
	if _, err := d.kv.Put(ctx, key, []byte(body)); err != nil {
		return fmt.Errorf("failed to store draft %s: %w", key, err)
	}
	d.Logger.Debug("Draft saved", "key", key)
	return nil
}

func (d *Drafts) Delete(ctx context.Context, key string) error {
	err := d.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
