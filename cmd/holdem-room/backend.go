package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/headsup/internal/config"
	"github.com/lox/headsup/internal/remote"
	"github.com/lox/headsup/internal/store"
)

// load reads the configuration and applies the global overrides.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(g.EnvFile); err != nil {
		return nil, err
	}
	if g.Backend != "" {
		cfg.Sync.Backend = g.Backend
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openBackend connects to the configured store.
func openBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (store.Backend, error) {
	switch cfg.Sync.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendRedis:
		r := store.NewRedis(store.RedisOptions{
			Addr:   cfg.Sync.RedisAddr,
			DB:     cfg.Sync.RedisDB,
			Prefix: cfg.Sync.RedisPrefix,
		}, logger)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Sync.RedisAddr, err)
		}
		return r, nil
	case config.BackendWebsocket:
		return remote.Dial(ctx, cfg.Sync.URL, logger)
	default:
		return nil, fmt.Errorf("unknown sync backend %q", cfg.Sync.Backend)
	}
}
