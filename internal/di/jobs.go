package di

import (
	"fmt"
	"time"

	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/reliability"
	"github.com/aristath/ecowash/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the maintenance jobs and registers them with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{}

	jobs.Maintenance = reliability.NewMaintenanceJob(container.HistoryDB, cfg.DataDir, log)
	if err := container.Scheduler.AddJob(cfg.Jobs.MaintenanceSchedule, jobs.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if cfg.Jobs.HistoryRetentionDays > 0 {
		retention := time.Duration(cfg.Jobs.HistoryRetentionDays) * 24 * time.Hour
		jobs.Retention = calculations.NewRetentionJob(container.HistoryRepo, retention, log)
		if err := container.Scheduler.AddJob(cfg.Jobs.RetentionSchedule, jobs.Retention); err != nil {
			return nil, fmt.Errorf("failed to register retention job: %w", err)
		}
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Jobs.BackupRetentionDays, log)
		if err := container.Scheduler.AddJob(cfg.Jobs.BackupSchedule, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	// Directory catalogs are invalidated by the watcher
	if cfg.Recipes.Source == config.RecipeSourceS3 {
		jobs.RecipeRefresh = scheduler.NewRecipeRefreshJob(container.RecipeCatalog, container.EventManager, log)
		if err := container.Scheduler.AddJob(cfg.Recipes.RefreshSchedule, jobs.RecipeRefresh); err != nil {
			return nil, fmt.Errorf("failed to register recipe refresh job: %w", err)
		}
	}

	return jobs, nil
}
