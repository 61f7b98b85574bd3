package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"journal/internal/cmd/flags"
	"journal/internal/compose"
	"journal/internal/config"
	"journal/internal/core"
	"journal/internal/gateway"
	"journal/internal/journal"
	"journal/internal/metrics"
	inats "journal/internal/nats"
	"journal/internal/view"
	"journal/pkg/clicfg"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "journal",
	Usage:   "Read and write the positive journal from the terminal",
	Version: VERSION,
	Flags: []cli.Flag{
		flags.APIURL,
		flags.LogLevel,
		flags.Timeout,
		flags.PageSize,
		flags.Output,
		flags.MetricsAddr,
		flags.NATSURL,
		flags.NATSInit,
	},
	Commands: []*cli.Command{
		feedCmd,
		threadCmd,
		profileCmd,
		registerCmd,
		verifyCmd,
		shellCmd,
	},
}

func Run() {
	// A missing .env is fine: flags and the environment still apply.
	_ = godotenv.Load(".env")

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, message(err))
		os.Exit(1)
	}
}

// message prefers the user-facing description of collaborator failures.
func message(err error) string {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return core.Describe(err)
	}
	return err.Error()
}

func run(ctx context.Context, c *cli.Command, runner pal.ServiceImpl) error {
	cfg := config.Config{}
	if err := clicfg.ParseFlags(c, &cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	services := []pal.ServiceImpl{
		pal.ProvideConst[*slog.Logger](logger),
		pal.ProvideConst[*config.Config](&cfg),
		pal.ProvideConst[*cli.Command](c),
		pal.Provide[core.API, gateway.Gateway](),
		runner,
	}

	if cfg.NATSURL != "" {
		services = append(services, pal.Provide[core.DraftStore, inats.Drafts]())
	} else {
		services = append(services, pal.Provide[core.DraftStore, compose.MemoryStore]())
	}

	if cfg.MetricsAddr != "" {
		services = append(services, pal.Provide[core.MetricsServer, metrics.HTTPServer]())
	}

	return pal.New(services...).
		InitTimeout(5*time.Second).
		HealthCheckTimeout(1*time.Second).
		ShutdownTimeout(5*time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func newEngine(cfg *config.Config, api core.API, drafts core.DraftStore, confirm core.Confirmer, logger *slog.Logger) *journal.Engine {
	return journal.New(api, journal.Options{
		PageSize:  cfg.PageSize,
		Confirmer: confirm,
		Drafts:    drafts,
		Logger:    logger,
	})
}

func newRenderer(cfg *config.Config) view.Renderer {
	return view.Renderer{Debug: cfg.Debug()}
}
