package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/jonathan/career-navigator/internal/checkpoint"
	"github.com/jonathan/career-navigator/internal/config"
	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/fetch"
	"github.com/jonathan/career-navigator/internal/ingestion"
	"github.com/jonathan/career-navigator/internal/llm"
	"github.com/jonathan/career-navigator/internal/logging"
	"github.com/jonathan/career-navigator/internal/workflow"
)

const tracerName = "github.com/jonathan/career-navigator"

// app holds the collaborators shared by every workflow command.
type app struct {
	db      *db.DB
	service *workflow.Service
	logger  *slog.Logger
	closers []func()
}

// openApp connects the database, checkpoint backend and LLM client and
// compiles the workflow service.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{logger: logging.Logger()}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL or database.url)")
	}
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	kv, err := openCheckpoints(ctx, cfg, database)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := kv.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { _ = closer.Close() })
	}

	if cfg.LLM.APIKey == "" {
		a.Close()
		return nil, fmt.Errorf("API key is required for provider %s", cfg.LLM.Provider)
	}
	client, err := llm.NewClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	service, err := workflow.NewService(database, client, kv, workflow.ServiceConfig{
		Fetcher: newProfileFetcher(cfg, a.logger),
		Logger:  a.logger,
		Tracer:  otel.Tracer(tracerName),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build workflow: %w", err)
	}
	a.service = service
	return a, nil
}

// Close releases collaborators in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openCheckpoints selects the checkpoint backend named by checkpoint.backend.
func openCheckpoints(ctx context.Context, cfg *config.Config, database *db.DB) (workflow.KV, error) {
	switch cfg.Checkpoint.Backend {
	case config.BackendMemory:
		return checkpoint.NewMemory(), nil
	case config.BackendRedis:
		opts := []checkpoint.RedisOption{checkpoint.WithTTL(cfg.CheckpointTTL())}
		if cfg.Checkpoint.KeyPrefix != "" {
			opts = append(opts, checkpoint.WithKeyPrefix(cfg.Checkpoint.KeyPrefix))
		}
		store, err := checkpoint.Dial(ctx, cfg.Checkpoint.RedisURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis checkpoint store: %w", err)
		}
		return store, nil
	default:
		return database.Checkpoints(), nil
	}
}

// newProfileFetcher builds the URL ingester used for network profile URLs.
func newProfileFetcher(cfg *config.Config, logger *slog.Logger) *ingestion.URLIngester {
	options := fetch.DefaultOptions()
	options.Timeout = cfg.FetchTimeout()
	fetcher := fetch.NewFetcher(&fetch.FetcherConfig{
		Options:    options,
		UseBrowser: cfg.Fetch.UseBrowser,
		Logger:     logger,
	})
	return ingestion.NewURLIngester(fetcher, logger)
}
