package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"journal/internal/config"
	"journal/internal/core"
)

var feedCmd = &cli.Command{
	Name:  "feed",
	Usage: "Print the latest posts",
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, pal.Provide[core.Command, feedRunner]())
	},
}

var threadCmd = &cli.Command{
	Name:      "thread",
	Usage:     "Print a post with its replies",
	ArgsUsage: "<post-id>",
	Action: func(ctx context.Context, c *cli.Command) error {
		if _, err := parseID(c.Args().First(), "Post not found"); err != nil {
			return err
		}
		return run(ctx, c, pal.Provide[core.Command, threadRunner]())
	},
}

var profileCmd = &cli.Command{
	Name:      "profile",
	Usage:     "Print a public profile",
	ArgsUsage: "<user-id>",
	Action: func(ctx context.Context, c *cli.Command) error {
		if _, err := parseID(c.Args().First(), "User not found"); err != nil {
			return err
		}
		return run(ctx, c, pal.Provide[core.Command, profileRunner]())
	},
}

// parseID rejects malformed ids before they reach the API.
func parseID(arg, notFound string) (string, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return "", core.NewError(core.ErrNotFound, 404, notFound)
	}
	return id.String(), nil
}

type feedRunner struct {
	Logger *slog.Logger
	Config *config.Config
	API    core.API
	Drafts core.DraftStore
}

func (r *feedRunner) Run(ctx context.Context) error {
	engine := newEngine(r.Config, r.API, r.Drafts, nil, r.Logger)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	return newRenderer(r.Config).Home(os.Stdout, engine.Home())
}

type threadRunner struct {
	Logger  *slog.Logger
	Config  *config.Config
	API     core.API
	Drafts  core.DraftStore
	Command *cli.Command
}

func (r *threadRunner) Run(ctx context.Context) error {
	id, err := parseID(r.Command.Args().First(), "Post not found")
	if err != nil {
		return err
	}

	engine := newEngine(r.Config, r.API, r.Drafts, nil, r.Logger)
	engine.Session.Resolve(ctx)

	thread, err := engine.OpenThread(ctx, id)
	if err != nil {
		return err
	}
	return newRenderer(r.Config).Thread(os.Stdout, thread)
}

type profileRunner struct {
	Logger  *slog.Logger
	Config  *config.Config
	API     core.API
	Command *cli.Command
}

func (r *profileRunner) Run(ctx context.Context) error {
	id, err := parseID(r.Command.Args().First(), "User not found")
	if err != nil {
		return err
	}

	user, err := r.API.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return newRenderer(r.Config).Profile(os.Stdout, user)
}
