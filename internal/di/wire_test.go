package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/notification"
	"github.com/aristath/ecowash/internal/modules/recipe"
	testutil "github.com/aristath/ecowash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	return &config.Config{
		DataDir: dataDir,
		Port:    5000,
		Recipes: config.RecipeConfig{
			Source:   config.RecipeSourceDir,
			Dir:      filepath.Join(dataDir, "recette"),
			CacheTTL: time.Minute,
			Watch:    true,
		},
		Tolerance: config.ToleranceConfig{Key: "tolerance.txt", Default: 0.005},
		Additives: config.AdditiveConfig{FallbacksEnabled: true, Compo1: 0.852, Compo2: 0.81, Compo3: 0.83},
		Jobs: config.JobsConfig{
			MaintenanceSchedule:  "0 15 * * * *",
			RetentionSchedule:    "0 0 4 * * *",
			HistoryRetentionDays: 90,
			BackupSchedule:       "0 0 3 * * *",
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.HistoryDB)
	assert.Nil(t, container.ObjectStore)
	assert.Nil(t, container.BackupService, "no bucket, no backups")
	assert.NotNil(t, container.RecipeCatalog)
	assert.NotNil(t, container.RecipeWatcher)
	assert.NotNil(t, container.CalculationService)
	assert.NotNil(t, container.NotificationService)
	assert.IsType(t, &notification.LogMailer{}, container.Mailer)

	assert.NotNil(t, jobs.Maintenance)
	assert.NotNil(t, jobs.Retention)
	assert.Nil(t, jobs.Backup)
	assert.Nil(t, jobs.RecipeRefresh)
	assert.ElementsMatch(t, []string{"history_maintenance", "history_retention"}, container.Scheduler.JobNames())

	_, err = os.Stat(cfg.Recipes.Dir)
	assert.NoError(t, err, "recipe directory is created")
}

func TestWire_CalculatesEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recipes.Watch = false
	require.NoError(t, os.MkdirAll(cfg.Recipes.Dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Recipes.Dir, testutil.EcoWashRecipeName+".yaml"), []byte(testutil.EcoWashRecipeYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Recipes.Dir, "tolerance.txt"), []byte("0.02\n"), 0o644))

	container, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	density, ir := correction.Theoretical(testutil.NewEcoWashRecipe(t))
	calc, err := container.CalculationService.Calculate(context.Background(), calculations.Request{
		Recipe:      testutil.EcoWashRecipeName,
		Measurement: correction.Measurement{Density: density, RefractiveIndex: ir - 0.01},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.02, calc.Tolerance, "tolerance file next to the recipes is used")
	assert.Equal(t, correction.OutcomeNoCorrection, calc.Result.Outcome)
	assert.True(t, calc.Persisted)
}

func TestWire_S3SourceRequiresBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recipes.Source = config.RecipeSourceS3

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestFallbackAdditives(t *testing.T) {
	fallbacks := FallbackAdditives(config.AdditiveConfig{FallbacksEnabled: true, Compo1: 0.852, Compo2: 0.81, Compo3: 0.83})
	require.Len(t, fallbacks, 3)
	assert.Equal(t, correction.FallbackAdditive{Name: "EcoAdd 2", Concentration: 0.81}, fallbacks[recipe.RoleCompo2])

	assert.Nil(t, FallbackAdditives(config.AdditiveConfig{Compo1: 0.852}))
}

func TestNewMailer(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "ecowash@example.com", StartTLS: true}

	mailer, err := NewMailer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &notification.SMTPMailer{}, mailer)
}
