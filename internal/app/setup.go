package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/parley/db"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/orchestrator"
	"github.com/parleyhq/parley/internal/thread"
	"github.com/parleyhq/parley/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	store, pool, err := provideStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.Pool = pool

	registry, err := tools.NewDefaultRegistry(cfg.Tools, logger)
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}
	a.Registry = registry

	gen, err := model.New(model.Config{
		Genkit:      g,
		ModelName:   cfg.FullModelName(),
		ToolRefs:    registry.Refs(g),
		Logger:      logger,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("building model adapter: %w", err)
	}
	a.Model = gen

	orch, err := orchestrator.New(orchestrator.Config{
		Store:     store,
		Model:     gen,
		Tools:     registry,
		MaxRounds: cfg.MaxRounds,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}
	a.Orchestrator = orch

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.FullModelName(),
		"storage", cfg.StorageBackend,
		"tools", len(registry.Names()),
	)
	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideStore creates the checkpoint store for the configured backend.
// The returned pool is nil for the memory backend.
func provideStore(ctx context.Context, cfg *config.Config, logger log.Logger) (thread.Store, *pgxpool.Pool, error) {
	if cfg.StorageBackend != config.StoragePostgres {
		logger.Debug("using in-memory checkpoint store")
		return thread.NewMemoryStore(logger), nil, nil
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := thread.NewPostgresStore(pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating postgres store: %w", err)
	}
	return store, pool, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
