// Command catmap is a terminal client for the cat map: list, watch, post
// and seed sightings against the configured backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"backend-catmap/internal/config"
	"backend-catmap/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(cfg, os.Stdout, openBackend)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
