package di

import (
	"context"
	"fmt"

	"github.com/aristath/ecowash/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize clients and services
// 3. Register jobs
// Background work (scheduler, recipe watcher) is started by the caller via Start.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, jobs, nil
}

// Start launches the scheduler and the recipe watcher. They stop when ctx is
// cancelled or Close is called.
func (c *Container) Start(ctx context.Context) {
	if c.RecipeWatcher != nil {
		c.RecipeWatcher.Start(ctx)
	}
	if c.Scheduler != nil {
		c.Scheduler.Start()
	}
}

// Close stops background work and closes the databases. Safe to call on a
// partially initialized container.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.RecipeWatcher != nil {
		_ = c.RecipeWatcher.Close()
	}
	if c.HistoryDB != nil {
		return c.HistoryDB.Close()
	}
	return nil
}
