package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/client"
	"github.com/scicore-run/forge/config"
)

// buildConfig loads the optional --config file and overlays environment
// variables for the connection URLs, mirroring the precedence the teacher's
// run command applies between CLI flags and config file defaults: explicit
// environment variables always win over the file.
func buildConfig(c *cli.Context) (config.Config, error) {
	var cfg config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, cli.Exit(err.Error(), exitConfigError)
		}
		cfg = *loaded
	}

	if v := os.Getenv("FORGE_KV_URL"); v != "" {
		cfg.KV.URL = v
	}
	if v := os.Getenv("FORGE_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if cfg.KV.URL == "" {
		return config.Config{}, cli.Exit("kv connection URL required: set kv.url in --config or FORGE_KV_URL", exitConfigError)
	}
	if cfg.Queue.URL == "" {
		return config.Config{}, cli.Exit("queue connection URL required: set queue.url in --config or FORGE_QUEUE_URL", exitConfigError)
	}
	return cfg, nil
}

// buildClient loads config and constructs a client.Client for a command
// invocation. Callers are responsible for closing it.
func buildClient(ctx context.Context, c *cli.Context) (*client.Client, error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, err
	}
	cl, err := client.New(ctx, cfg)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitRuntimeError)
	}
	return cl, nil
}
