package calculations

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/recipe"
	testutil "github.com/aristath/ecowash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *HistoryRepository {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewHistoryRepository(db.Conn(), zerolog.Nop())
}

func correctedResult(t *testing.T) *correction.Result {
	t.Helper()
	r := testutil.NewEcoWashRecipe(t)
	density, ir := correction.Theoretical(r)
	calc := correction.NewCalculator(correction.NewCorrector(nil), zerolog.Nop())
	result, err := calc.Calculate(correction.Measurement{Density: density, RefractiveIndex: ir - 0.01}, r, 0.005)
	require.NoError(t, err)
	return result
}

func TestHistoryRepository_RecordAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	result := correctedResult(t)
	created := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	rec := &Record{
		ID:              "0b9d2f4e-0000-4000-8000-000000000001",
		Recipe:          result.Recipe,
		MeasurementType: "bain",
		LotCount:        3,
		Density:         result.Measurement.Density,
		Refraction:      result.Measurement.RefractiveIndex,
		Tolerance:       0.005,
		Outcome:         result.Outcome,
		Result:          result,
		CreatedAt:       created,
	}
	require.NoError(t, repo.Record(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Recipe, got.Recipe)
	assert.Equal(t, "bain", got.MeasurementType)
	assert.Equal(t, 3, got.LotCount)
	assert.Equal(t, correction.OutcomeCorrected, got.Outcome)
	assert.Equal(t, created, got.CreatedAt)
	assert.False(t, got.EmailSent)
	assert.Nil(t, got.EmailSentAt)

	require.NotNil(t, got.Result)
	require.NotNil(t, got.Result.Classification)
	assert.Equal(t, recipe.RoleCompo1, got.Result.Classification.Excess)
	assert.Equal(t, "ISOL", got.Result.Classification.Component)
	assert.InDelta(t, result.Additives()[testutil.EcoAdd3], got.Result.Additives()[testutil.EcoAdd3], 1e-15)
	assert.Equal(t, result.Gate, got.Result.Gate)
}

func TestHistoryRepository_GetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository_DuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	rec := &Record{ID: "dup", Recipe: "r", Outcome: correction.OutcomeNoCorrection, Result: &correction.Result{Outcome: correction.OutcomeNoCorrection}, CreatedAt: time.Now()}

	require.NoError(t, repo.Record(ctx, rec))
	assert.Error(t, repo.Record(ctx, rec))
}

func TestHistoryRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Record(ctx, &Record{
			ID:        id,
			Recipe:    "EcoWash - 1B",
			Outcome:   correction.OutcomeNoCorrection,
			Result:    &correction.Result{Recipe: "EcoWash - 1B", Outcome: correction.OutcomeNoCorrection},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	records, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "b", records[1].ID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistoryRepository_MarkEmailed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Record(ctx, &Record{
		ID: "m", Recipe: "r", Outcome: correction.OutcomeNoCorrection,
		Result: &correction.Result{Outcome: correction.OutcomeNoCorrection}, CreatedAt: time.Now(),
	}))

	sentAt := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, repo.MarkEmailed(ctx, "m", "lab@example.com", sentAt))

	got, err := repo.Get(ctx, "m")
	require.NoError(t, err)
	assert.True(t, got.EmailSent)
	assert.Equal(t, "lab@example.com", got.Email)
	require.NotNil(t, got.EmailSentAt)
	assert.Equal(t, sentAt, *got.EmailSentAt)

	assert.ErrorIs(t, repo.MarkEmailed(ctx, "nope", "lab@example.com", sentAt), ErrNotFound)
}

func TestRetentionJob(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for id, age := range map[string]time.Duration{"old": 100 * 24 * time.Hour, "new": 24 * time.Hour} {
		require.NoError(t, repo.Record(ctx, &Record{
			ID: id, Recipe: "r", Outcome: correction.OutcomeNoCorrection,
			Result: &correction.Result{Outcome: correction.OutcomeNoCorrection}, CreatedAt: now.Add(-age),
		}))
	}

	job := NewRetentionJob(repo, 90*24*time.Hour, zerolog.Nop())
	job.now = func() time.Time { return now }
	assert.Equal(t, "history_retention", job.Name())
	require.NoError(t, job.Run())

	_, err := repo.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(ctx, "new")
	assert.NoError(t, err)

	// Disabled retention keeps everything
	require.NoError(t, NewRetentionJob(repo, 0, zerolog.Nop()).Run())
	records, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
