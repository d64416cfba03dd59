// Package cmd implements the barrage CLI commands.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/barrage-archive/barrage/cli/config"
)

// configFlag selects the YAML config file.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   "barrage.yaml",
	}
}

// cookieFlag overrides the config's session cookie.
func cookieFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "cookie",
		Usage:   "Platform session cookie (overrides config)",
		EnvVars: []string{"BARRAGE_COOKIE"},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if cookie := c.String("cookie"); cookie != "" {
		cfg.Cookie = cookie
	}
	if rooms := c.Int64Slice("room"); len(rooms) > 0 {
		cfg.Rooms = rooms
	}
	if c.IsSet("flush-rows") {
		cfg.Ingest.FlushRows = c.Int("flush-rows")
	}
	if c.IsSet("flush-interval") {
		cfg.Ingest.FlushInterval.Duration = c.Duration("flush-interval")
	}

	return cfg, nil
}
