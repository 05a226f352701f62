// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles all components: Genkit, the
// checkpoint store, the tool registry, the model adapter, and the
// orchestrator. Construction order matters and lives in Setup.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/orchestrator"
	"github.com/parleyhq/parley/internal/thread"
	"github.com/parleyhq/parley/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit       *genkit.Genkit
	Store        thread.Store
	Registry     *tools.Registry
	Model        *model.Generator
	Orchestrator *orchestrator.Orchestrator

	// Pool is nil when the memory backend is active.
	Pool *pgxpool.Pool
}

// Close releases all resources held by the App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	return nil
}

// StorePing returns a readiness probe for the active storage backend.
// Returns nil for the memory backend, which is always ready.
func (a *App) StorePing() func(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.Ping
}
