package clicfg_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"journal/pkg/clicfg"
)

type options struct {
	URL     string        `flag:"url"`
	Verbose bool          `flag:"verbose"`
	Limit   int           `flag:"limit"`
	Timeout time.Duration `flag:"timeout"`
	Ratio   float64       `flag:"ratio"`
	Tags    []string      `flag:"tag"`

	Untagged string
	hidden   string `flag:"url"`
}

func parse(t *testing.T, args ...string) options {
	t.Helper()

	var opts options
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8000"},
			&cli.BoolFlag{Name: "verbose"},
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
			&cli.FloatFlag{Name: "ratio"},
			&cli.StringSliceFlag{Name: "tag"},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			return clicfg.ParseFlags(c, &opts)
		},
	}
	require.NoError(t, cmd.Run(t.Context(), append([]string{"test"}, args...)))
	return opts
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		opts := parse(t)
		require.Equal(t, "http://localhost:8000", opts.URL)
		require.False(t, opts.Verbose)
		require.Equal(t, 20, opts.Limit)
		require.Equal(t, 10*time.Second, opts.Timeout)
		require.Empty(t, opts.Untagged)
		require.Empty(t, opts.hidden)
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Parallel()

		opts := parse(t, "--url", "https://journal.example", "--verbose", "--limit", "5",
			"--timeout", "1m30s", "--ratio", "0.5", "--tag", "a", "--tag", "b")
		require.Equal(t, "https://journal.example", opts.URL)
		require.True(t, opts.Verbose)
		require.Equal(t, 5, opts.Limit)
		require.Equal(t, 90*time.Second, opts.Timeout)
		require.InDelta(t, 0.5, opts.Ratio, 1e-9)
		require.Equal(t, []string{"a", "b"}, opts.Tags)
	})
}

func TestParseFlags_NotAStruct(t *testing.T) {
	t.Parallel()

	cmd := &cli.Command{Name: "test"}

	var s string
	require.ErrorIs(t, clicfg.ParseFlags(cmd, s), clicfg.ErrCannotParseFlags)
	require.ErrorIs(t, clicfg.ParseFlags(cmd, &s), clicfg.ErrCannotParseFlags)
}
