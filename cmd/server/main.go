// Package main is the entry point for the EcoWash correction service.
// It serves the calculation API used by the workstation form, keeps the
// calculation history and runs the maintenance jobs around it.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/di"
	"github.com/aristath/ecowash/internal/server"
	"github.com/aristath/ecowash/internal/version"
	"github.com/aristath/ecowash/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env file supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container
// 4. Starts background work (scheduler, recipe watcher) and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("data_dir", cfg.DataDir).
		Msg("Starting EcoWash")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing the container checkpoints and closes the history database
	defer container.Close()

	log.Info().
		Bool("backup_job", jobs.Backup != nil).
		Bool("retention_job", jobs.Retention != nil).
		Bool("recipe_refresh_job", jobs.RecipeRefresh != nil).
		Msg("Jobs registered")

	container.Start(ctx)

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stops the recipe watcher
	cancel()

	// In-flight calculations get up to 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
