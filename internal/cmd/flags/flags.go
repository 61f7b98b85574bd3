package flags

import (
	"fmt"
	"slices"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validOutputs   = []string{"text", "debug"}
)

func oneOf(name string, allowed []string) func(string) error {
	return func(value string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("invalid %s: %s, allowed values are: %s", name, value, allowed)
		}
		return nil
	}
}

var APIURL = &cli.StringFlag{
	Name:    "api-url",
	Aliases: []string{"u"},
	Usage:   "The base URL of the journal API",
	Value:   "http://localhost:8000",
	Sources: cli.EnvVars("JOURNAL_API_URL"),
}

var LogLevel = &cli.StringFlag{
	Name:      "log-level",
	Aliases:   []string{"l"},
	Usage:     "The level of the logs",
	Value:     "info",
	Validator: oneOf("log level", validLogLevels),
	Sources:   cli.EnvVars("LOG_LEVEL"),
}

var Timeout = &cli.DurationFlag{
	Name:    "timeout",
	Usage:   "Timeout of a single API request",
	Value:   10 * time.Second,
	Sources: cli.EnvVars("JOURNAL_TIMEOUT"),
}

var PageSize = &cli.IntFlag{
	Name:  "page-size",
	Usage: "Number of posts fetched per feed page",
	Value: 20,
	Validator: func(v int) error {
		if v < 1 || v > 100 {
			return fmt.Errorf("invalid page size: %d, must be between 1 and 100", v)
		}
		return nil
	},
	Sources: cli.EnvVars("JOURNAL_PAGE_SIZE"),
}

var Output = &cli.StringFlag{
	Name:      "output",
	Aliases:   []string{"o"},
	Usage:     "Output format: text or debug",
	Value:     "text",
	Validator: oneOf("output", validOutputs),
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "Serve prometheus metrics on this address, e.g. :9090",
	Sources: cli.EnvVars("JOURNAL_METRICS_ADDR"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "Keep drafts in NATS JetStream at this URL, e.g. " + libnats.DefaultURL,
	Sources: cli.EnvVars("NATS_URL"),
}

var NATSInit = &cli.BoolFlag{
	Name:        "nats-init",
	Aliases:     []string{"i"},
	Usage:       "Create the drafts bucket if it does not exist",
	DefaultText: "false",
	Value:       false,
	Sources:     cli.EnvVars("NATS_INIT"),
}

var Email = &cli.StringFlag{
	Name:     "email",
	Usage:    "Account email",
	Required: true,
}

var DisplayName = &cli.StringFlag{
	Name:     "display-name",
	Usage:    "Name shown next to your posts",
	Required: true,
}
