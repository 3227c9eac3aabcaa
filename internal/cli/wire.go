package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/config"
	"github.com/lucasnoah/autodevops/internal/gitservice"
	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/preflight"
	"github.com/lucasnoah/autodevops/internal/reasoning"
	"github.com/lucasnoah/autodevops/internal/store"
)

// cloneBackend is satisfied by both clone modes.
type cloneBackend interface {
	preflight.Backend
	orchestrator.Cleaner
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %s\n", e)
		}
		return nil, fmt.Errorf("invalid configuration (%d error(s))", len(errs))
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newBackend builds the clone backend. Remote mode pings the clone
// service health endpoint so a dead service fails fast instead of at
// first clone.
func newBackend(ctx context.Context, cfg *config.Config) (cloneBackend, error) {
	if cfg.Clone.Mode == "remote" {
		client, err := gitservice.NewClient(cfg.Clone.ServiceURL, cfg.Clone.TimeoutDuration())
		if err != nil {
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			return nil, fmt.Errorf("clone service unreachable: %w", err)
		}
		return client, nil
	}
	return preflight.NewLocalClone(nil, ""), nil
}

func newReasoner(cfg *config.Config, log *zap.Logger) (reasoning.Client, error) {
	apiKey := os.Getenv(cfg.Reasoning.APIKeyEnv)
	client, err := reasoning.NewHTTPClient(cfg.Reasoning.Endpoint, cfg.Reasoning.Model, apiKey, cfg.Reasoning.TimeoutDuration(), log)
	if err != nil {
		return nil, err
	}
	if cfg.Reasoning.RetryTransient {
		return reasoning.WithRetry(client, log), nil
	}
	return client, nil
}

// newStore opens the configured snapshot store. The returned cleanup
// func is a no-op for the memory driver.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return pg, func() { pg.Close() }, nil
	case "file":
		fs, err := store.DefaultFile()
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return fs, func() {}, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func newPreflighter(cfg *config.Config, backend preflight.Backend, reasoner reasoning.Client, log *zap.Logger) (*preflight.Preflighter, error) {
	return preflight.New(backend, reasoner, preflight.Options{
		MaxContextFiles: cfg.Preflight.MaxContextFiles,
		MaxFileChars:    cfg.Preflight.MaxFileChars,
		MaxBlobChars:    cfg.Preflight.MaxBlobChars,
		TreeSample:      cfg.Preflight.TreeSample,
	}, log)
}
