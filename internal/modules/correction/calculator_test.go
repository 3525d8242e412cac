package correction

import (
	"math"
	"testing"

	"github.com/aristath/ecowash/internal/modules/recipe"
	testutil "github.com/aristath/ecowash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalculator() *Calculator {
	return NewCalculator(NewCorrector(nil), zerolog.Nop())
}

func TestCalculate_TheoreticalMatchNeedsNoCorrection(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)

	result, err := newCalculator().Calculate(Measurement{Density: density, RefractiveIndex: ir}, r, 0.005)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoCorrection, result.Outcome)
	assert.False(t, result.NeedsCorrection())
	assert.Nil(t, result.Fractions)
	assert.Nil(t, result.Classification)
	assert.Empty(t, result.Additives())
	assert.Equal(t, testutil.EcoWashRecipeName, result.Recipe)
}

func TestCalculate_WorkedExamples(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)

	tests := []struct {
		name      string
		m         Measurement
		excess    recipe.Role
		additives map[string]float64
	}{
		{
			name:   "refraction low",
			m:      Measurement{Density: density, RefractiveIndex: ir - 0.01},
			excess: recipe.RoleCompo1,
			additives: map[string]float64{
				testutil.EcoAdd2: 0.005425185,
				testutil.EcoAdd3: 0.822555159,
			},
		},
		{
			name:   "refraction high",
			m:      Measurement{Density: density, RefractiveIndex: ir + 0.01},
			excess: recipe.RoleCompo3,
			additives: map[string]float64{
				testutil.EcoAdd1: 0.717167581,
				testutil.EcoAdd2: 0.366509277,
			},
		},
		{
			name:   "density high",
			m:      Measurement{Density: density + 0.01, RefractiveIndex: ir},
			excess: recipe.RoleCompo2,
			additives: map[string]float64{
				testutil.EcoAdd1: 0.123401302,
				testutil.EcoAdd3: 0.425536212,
			},
		},
		{
			name:   "density low",
			m:      Measurement{Density: density - 0.01, RefractiveIndex: ir},
			excess: recipe.RoleCompo3,
			additives: map[string]float64{
				testutil.EcoAdd1: 0.239337397,
				testutil.EcoAdd2: 0.188738271,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newCalculator().Calculate(tt.m, r, 0.005)
			require.NoError(t, err)

			assert.Equal(t, OutcomeCorrected, result.Outcome)
			assert.True(t, result.NeedsCorrection())
			require.NotNil(t, result.Classification)
			assert.Equal(t, tt.excess, result.Classification.Excess)
			require.Len(t, result.Additives(), len(tt.additives))
			for name, want := range tt.additives {
				assert.InDelta(t, want, result.Additives()[name], 1e-6, name)
			}
			assert.False(t, result.Correction.Incomplete)
		})
	}
}

func TestCalculate_LargeToleranceSkipsSolve(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)

	result, err := newCalculator().Calculate(Measurement{Density: density, RefractiveIndex: ir - 0.01}, r, 0.02)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoCorrection, result.Outcome)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)
	m := Measurement{Density: density + 0.003, RefractiveIndex: ir - 0.008}
	calc := newCalculator()

	first, err := calc.Calculate(m, r, 0.005)
	require.NoError(t, err)
	second, err := calc.Calculate(m, r, 0.005)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for name, v := range first.Additives() {
		assert.Equal(t, math.Float64bits(v), math.Float64bits(second.Additives()[name]))
	}
}

func TestCalculate_InvalidMeasurement(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)

	_, err := newCalculator().Calculate(Measurement{Density: math.NaN(), RefractiveIndex: 1.47}, r, 0.005)
	assert.ErrorIs(t, err, ErrMeasurement)
}

func TestCalculate_SolveFailurePropagates(t *testing.T) {
	r := testutil.NewRecipe(t, "singular", []recipe.ComponentRow{
		{Name: "compo1", Fraction: f64(0.3), Density: f64(1.0), RefractiveIndex: f64(2.0)},
		{Name: "compo2", Fraction: f64(0.3), Density: f64(1.0), RefractiveIndex: f64(2.0)},
		{Name: "compo3", Fraction: f64(0.4), Density: f64(0.5), RefractiveIndex: f64(1.5)},
	}, nil)

	_, err := newCalculator().Calculate(Measurement{Density: 0.5, RefractiveIndex: 1.5}, r, 0.005)
	assert.ErrorIs(t, err, ErrSolve)
}

func TestCalculate_MissingFreeComponentFailsAtRecipeLoad(t *testing.T) {
	rows := testutil.NewEcoWashComponentRows()
	rows = append(rows[:1], rows[2:]...)

	_, err := recipe.Build("missing", rows, nil, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, recipe.ErrRecipe)
}
