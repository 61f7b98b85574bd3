// Package gateway provides the collaborator API as an application service.
package gateway

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"

	"journal/internal/config"
	"journal/internal/core"
	"journal/pkg/journalapi"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "journal_api_request_duration_seconds",
	Help:    "Duration of requests to the journal API.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Gateway implements core.API over HTTP. Failures are never retried.
type Gateway struct {
	Logger *slog.Logger
	Config *config.Config

	client *journalapi.Client
}

func (g *Gateway) Init(_ context.Context) error {
	g.Logger = g.Logger.With("component", "gateway")

	client, err := journalapi.NewClient(&journalapi.ClientConfig{
		BaseURL:             g.Config.APIURL,
		Timeout:             g.Config.Timeout,
		ResponseMiddlewares: []resty.ResponseMiddleware{g.observe},
	})
	if err != nil {
		return err
	}
	g.client = client

	g.Logger.Debug("API client ready", "url", g.Config.APIURL, "timeout", g.Config.Timeout)
	return nil
}

func (g *Gateway) Shutdown(_ context.Context) error {
	return g.client.Close()
}

func (g *Gateway) observe(_ *resty.Client, res *resty.Response) error {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return nil
	}

	route := journalapi.Route(res.RawResponse.Request.URL.Path)
	status := strconv.Itoa(res.StatusCode())

	requestDuration.WithLabelValues(res.Request.Method, route, status).Observe(res.Duration().Seconds())
	g.Logger.Debug("API request", "method", res.Request.Method, "route", route, "status", res.Status(), "duration", res.Duration())
	return nil
}

func (g *Gateway) Register(ctx context.Context, reg core.Registration) error {
	return g.client.Register(ctx, reg)
}

func (g *Gateway) Login(ctx context.Context, email, password string) error {
	return g.client.Login(ctx, email, password)
}

func (g *Gateway) Logout(ctx context.Context) error {
	return g.client.Logout(ctx)
}

func (g *Gateway) VerifyEmail(ctx context.Context, token string) error {
	return g.client.VerifyEmail(ctx, token)
}

func (g *Gateway) Me(ctx context.Context) (*core.User, error) {
	return g.client.Me(ctx)
}

func (g *Gateway) GetUser(ctx context.Context, id string) (*core.PublicUser, error) {
	return g.client.GetUser(ctx, id)
}

func (g *Gateway) GetPosts(ctx context.Context, cursor string, limit int) (*core.FeedPage, error) {
	return g.client.GetPosts(ctx, cursor, limit)
}

func (g *Gateway) CreatePost(ctx context.Context, body, parentID string) (*core.Post, error) {
	return g.client.CreatePost(ctx, body, parentID)
}

func (g *Gateway) GetPost(ctx context.Context, id string) (*core.PostDetail, error) {
	return g.client.GetPost(ctx, id)
}

func (g *Gateway) DeletePost(ctx context.Context, id string) error {
	return g.client.DeletePost(ctx, id)
}

func (g *Gateway) ToggleLike(ctx context.Context, id string) (*core.LikeState, error) {
	return g.client.ToggleLike(ctx, id)
}
