package config

import "time"

type Config struct {
	APIURL   string        `flag:"api-url"`
	LogLevel string        `flag:"log-level"`
	Timeout  time.Duration `flag:"timeout"`
	PageSize int           `flag:"page-size"`
	Output   string        `flag:"output"`

	MetricsAddr string `flag:"metrics-addr"`

	NATSURL  string `flag:"nats-url"`
	NATSInit bool   `flag:"nats-init"`
}

// Debug reports whether views are dumped raw instead of rendered.
func (c *Config) Debug() bool {
	return c.Output == "debug"
}
