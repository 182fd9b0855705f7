package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lox/headsup/internal/config"
	"github.com/lox/headsup/internal/remote"
)

type ServeCmd struct {
	Addr string `short:"a" help:"Address to listen on (overrides config)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.Sync.Backend == config.BackendWebsocket {
		return fmt.Errorf("serve needs a memory or redis backend")
	}
	if c.Addr != "" {
		cfg.Sync.Listen = c.Addr
	}
	logger := config.NewLogger(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	srv := remote.NewServer(backend, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Sync.Listen)
	}()
	logger.Info("Room server ready", "addr", cfg.Sync.Listen, "backend", cfg.Sync.Backend)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "connections", srv.Connections())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
