package scheduler

import (
	"context"
	"time"

	"github.com/aristath/ecowash/internal/events"
	"github.com/rs/zerolog"
)

// RecipeCatalog is the part of the recipe catalog the refresh job needs
type RecipeCatalog interface {
	Invalidate()
	List(ctx context.Context) ([]string, error)
}

// RecipeRefreshJob drops cached recipes so edits in the bucket are picked up.
// Directory catalogs are refreshed by the file watcher instead.
type RecipeRefreshJob struct {
	catalog RecipeCatalog
	events  *events.Manager
	log     zerolog.Logger
}

// NewRecipeRefreshJob creates a new recipe refresh job
func NewRecipeRefreshJob(catalog RecipeCatalog, eventManager *events.Manager, log zerolog.Logger) *RecipeRefreshJob {
	return &RecipeRefreshJob{
		catalog: catalog,
		events:  eventManager,
		log:     log.With().Str("job", "recipe_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RecipeRefreshJob) Name() string {
	return "recipe_refresh"
}

// Run executes the recipe refresh job
func (j *RecipeRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.catalog.Invalidate()

	names, err := j.catalog.List(ctx)
	if err != nil {
		return err
	}

	j.log.Debug().Int("recipes", len(names)).Msg("Recipe cache refreshed")
	if j.events != nil {
		j.events.EmitTyped("scheduler", &events.RecipesChangedData{Path: "*"})
	}
	return nil
}
