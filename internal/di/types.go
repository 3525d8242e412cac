package di

import (
	"github.com/aristath/ecowash/internal/clients/objectstore"
	"github.com/aristath/ecowash/internal/database"
	"github.com/aristath/ecowash/internal/events"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/notification"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/aristath/ecowash/internal/modules/tolerance"
	"github.com/aristath/ecowash/internal/reliability"
	"github.com/aristath/ecowash/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server for access to services.
type Container struct {
	// Databases
	HistoryDB *database.DB

	// Clients (nil when no bucket is configured)
	ObjectStore *objectstore.Client

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Recipes
	RecipeSource  recipe.Source
	RecipeCatalog *recipe.Catalog
	RecipeWatcher *recipe.Watcher // nil unless watching a recipe directory

	// Calculation
	ToleranceProvider  *tolerance.Provider
	Calculator         *correction.Calculator
	HistoryRepo        *calculations.HistoryRepository
	CalculationService *calculations.Service

	// Notification
	Mailer              notification.Mailer
	NotificationService *notification.Service

	// Reliability (nil when no bucket is configured)
	BackupService *reliability.BackupService

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered scheduler jobs. Jobs that are not configured are nil.
type JobInstances struct {
	RecipeRefresh *scheduler.RecipeRefreshJob
	Backup        *reliability.BackupJob
	Maintenance   *reliability.MaintenanceJob
	Retention     *calculations.RetentionJob
}
