package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aristath/ecowash/internal/clients/objectstore"
	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/events"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/notification"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/aristath/ecowash/internal/modules/tolerance"
	"github.com/aristath/ecowash/internal/reliability"
	"github.com/aristath/ecowash/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services on top of the opened databases
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	if cfg.ObjectStoreEnabled() {
		client, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		container.ObjectStore = client
	}

	if err := initializeRecipes(container, cfg, log); err != nil {
		return err
	}

	container.ToleranceProvider = tolerance.NewProvider(container.RecipeSource, cfg.Tolerance.Key, cfg.Tolerance.Default, log)
	container.Calculator = correction.NewCalculator(correction.NewCorrector(FallbackAdditives(cfg.Additives)), log)
	container.HistoryRepo = calculations.NewHistoryRepository(container.HistoryDB.Conn(), log)
	container.CalculationService = calculations.NewService(
		container.RecipeCatalog,
		container.ToleranceProvider,
		container.Calculator,
		container.HistoryRepo,
		container.EventManager,
		log,
	)

	mailer, err := NewMailer(cfg, log)
	if err != nil {
		return err
	}
	container.Mailer = mailer
	container.NotificationService = notification.NewService(mailer, container.HistoryRepo, container.EventManager, log)

	if container.ObjectStore != nil {
		container.BackupService = reliability.NewBackupService(
			container.HistoryDB,
			container.ObjectStore,
			cfg.Jobs.BackupPrefix,
			cfg.StagingDir(),
			container.EventManager,
			log,
		)
	}

	container.Scheduler = scheduler.New(log)

	log.Info().
		Str("recipes", container.RecipeSource.Describe()).
		Bool("smtp", cfg.SMTPEnabled()).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")
	return nil
}

func initializeRecipes(container *Container, cfg *config.Config, log zerolog.Logger) error {
	switch cfg.Recipes.Source {
	case config.RecipeSourceS3:
		if container.ObjectStore == nil {
			return fmt.Errorf("recipe source s3 requires an object store")
		}
		container.RecipeSource = recipe.NewObjectSource(container.ObjectStore, cfg.Recipes.Prefix)
	default:
		if err := os.MkdirAll(cfg.Recipes.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create recipe directory: %w", err)
		}
		container.RecipeSource = recipe.NewDirSource(cfg.Recipes.Dir)
	}

	container.RecipeCatalog = recipe.NewCatalog(container.RecipeSource, cfg.Recipes.CacheTTL, log)

	if cfg.Recipes.Source == config.RecipeSourceDir && cfg.Recipes.Watch {
		watcher, err := recipe.NewWatcher(cfg.Recipes.Dir, func(path string) {
			container.RecipeCatalog.Invalidate()
			container.EventManager.EmitTyped("recipes", &events.RecipesChangedData{Path: path})
		}, log)
		if err != nil {
			// The catalog still works with its TTL
			log.Warn().Err(err).Msg("Recipe directory watch disabled")
		} else {
			container.RecipeWatcher = watcher
		}
	}
	return nil
}

// FallbackAdditives maps the configured fallback concentrations to blend roles
func FallbackAdditives(cfg config.AdditiveConfig) map[recipe.Role]correction.FallbackAdditive {
	if !cfg.FallbacksEnabled {
		return nil
	}
	return map[recipe.Role]correction.FallbackAdditive{
		recipe.RoleCompo1: {Name: correction.DefaultAdditiveName(recipe.RoleCompo1), Concentration: cfg.Compo1},
		recipe.RoleCompo2: {Name: correction.DefaultAdditiveName(recipe.RoleCompo2), Concentration: cfg.Compo2},
		recipe.RoleCompo3: {Name: correction.DefaultAdditiveName(recipe.RoleCompo3), Concentration: cfg.Compo3},
	}
}

// NewMailer returns an SMTP mailer when a relay is configured, a log-only mailer otherwise
func NewMailer(cfg *config.Config, log zerolog.Logger) (notification.Mailer, error) {
	if !cfg.SMTPEnabled() {
		return notification.NewLogMailer(log), nil
	}
	timeout := cfg.SMTP.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	mailer, err := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		StartTLS: cfg.SMTP.StartTLS,
		Timeout:  timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}
	return mailer, nil
}
