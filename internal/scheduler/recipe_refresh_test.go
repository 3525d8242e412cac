package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/ecowash/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCatalog struct {
	invalidated int
	names       []string
	err         error
}

func (c *fakeCatalog) Invalidate() { c.invalidated++ }

func (c *fakeCatalog) List(ctx context.Context) ([]string, error) {
	return c.names, c.err
}

func TestRecipeRefreshJob_Run(t *testing.T) {
	catalog := &fakeCatalog{names: []string{"EcoWash - 1B"}}
	bus := events.NewBus(zerolog.Nop())
	var changed int
	bus.Subscribe(events.RecipesChanged, func(*events.Event) { changed++ })

	job := NewRecipeRefreshJob(catalog, events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
	assert.Equal(t, "recipe_refresh", job.Name())
	assert.NoError(t, job.Run())
	assert.Equal(t, 1, catalog.invalidated)
	assert.Equal(t, 1, changed)
}

func TestRecipeRefreshJob_ListFailure(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("bucket unavailable")}
	job := NewRecipeRefreshJob(catalog, nil, zerolog.Nop())

	assert.Error(t, job.Run())
	assert.Equal(t, 1, catalog.invalidated)
}
