package correction

import (
	"testing"

	"github.com/aristath/ecowash/internal/modules/recipe"
	testutil "github.com/aristath/ecowash/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(t *testing.T, r *recipe.Recipe, m Measurement) (Fractions, Classification) {
	t.Helper()
	fr, err := Solve(m, r)
	require.NoError(t, err)
	cls, err := Classify(fr, r)
	require.NoError(t, err)
	return fr, cls
}

func TestCorrector_UsesRecipeAdditives(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)
	fr, cls := classified(t, r, Measurement{Density: density, RefractiveIndex: ir - 0.01})

	out := NewCorrector(nil).Correct(fr, cls, r)

	require.Len(t, out.Additives, 2)
	assert.InDelta(t, 0.005425185, out.Additives[testutil.EcoAdd2], 1e-6)
	assert.InDelta(t, 0.822555159, out.Additives[testutil.EcoAdd3], 1e-6)
	assert.False(t, out.Incomplete)
	assert.Empty(t, out.Missing)
	assert.Empty(t, out.Defaulted)
}

func TestCorrector_TargetsRestoreReferenceRatios(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)
	fr, cls := classified(t, r, Measurement{Density: density, RefractiveIndex: ir - 0.01})
	require.Equal(t, recipe.RoleCompo1, cls.Excess)

	out := NewCorrector(nil).Correct(fr, cls, r)
	y := fr.Y + out.Additives[testutil.EcoAdd2]*0.81
	z := fr.Z + out.Additives[testutil.EcoAdd3]*0.83

	assert.InDelta(t, cls.Reference.A, fr.X/y, 1e-9)
	assert.InDelta(t, cls.Reference.C, z/fr.X, 1e-9)
}

func TestCorrector_FallbackConcentrations(t *testing.T) {
	r := testutil.NewEcoWashRecipeWithoutAdditives(t)
	density, ir := Theoretical(r)
	fr, cls := classified(t, r, Measurement{Density: density, RefractiveIndex: ir - 0.01})

	corrector := NewCorrector(map[recipe.Role]FallbackAdditive{
		recipe.RoleCompo2: {Name: "EcoAdd 2", Concentration: 0.81},
	})
	out := corrector.Correct(fr, cls, r)

	assert.InDelta(t, 0.005425185, out.Additives[testutil.EcoAdd2], 1e-6)
	assert.NotContains(t, out.Additives, testutil.EcoAdd3)
	assert.Equal(t, []string{testutil.EcoAdd2}, out.Defaulted)
	assert.Equal(t, []string{testutil.EcoAdd3}, out.Missing)
	assert.True(t, out.Incomplete)
}

func TestCorrector_NoConcentrationAvailable(t *testing.T) {
	r := testutil.NewEcoWashRecipeWithoutAdditives(t)
	density, ir := Theoretical(r)
	fr, cls := classified(t, r, Measurement{Density: density, RefractiveIndex: ir - 0.01})

	out := NewCorrector(nil).Correct(fr, cls, r)

	assert.Empty(t, out.Additives)
	assert.Equal(t, []string{testutil.EcoAdd2, testutil.EcoAdd3}, out.Missing)
	assert.True(t, out.Incomplete)
}

func TestCorrector_ZeroConcentrationFallsBack(t *testing.T) {
	additives := testutil.NewEcoWashAdditiveRows()
	zero := 0.0
	additives[1].Concentration = &zero
	r := testutil.NewRecipe(t, "zero", testutil.NewEcoWashComponentRows(), additives)
	density, ir := Theoretical(r)
	fr, cls := classified(t, r, Measurement{Density: density, RefractiveIndex: ir - 0.01})

	out := NewCorrector(nil).Correct(fr, cls, r)
	assert.Equal(t, []string{testutil.EcoAdd2}, out.Missing)
	assert.Contains(t, out.Additives, testutil.EcoAdd3)

	out = NewCorrector(map[recipe.Role]FallbackAdditive{
		recipe.RoleCompo2: {Name: "Generic", Concentration: 0.81},
	}).Correct(fr, cls, r)
	// The recipe's additive name is kept, only the concentration is defaulted.
	assert.InDelta(t, 0.005425185, out.Additives[testutil.EcoAdd2], 1e-6)
	assert.Equal(t, []string{testutil.EcoAdd2}, out.Defaulted)
	assert.False(t, out.Incomplete)
}

func TestCorrector_NeverReturnsNonPositiveVolumes(t *testing.T) {
	r := testutil.NewEcoWashRecipe(t)
	density, ir := Theoretical(r)
	corrector := NewCorrector(nil)

	for dd := -0.05; dd <= 0.05; dd += 0.005 {
		for dn := -0.05; dn <= 0.05; dn += 0.005 {
			fr, err := Solve(Measurement{Density: density + dd, RefractiveIndex: ir + dn}, r)
			require.NoError(t, err)
			cls, err := Classify(fr, r)
			if err != nil {
				continue
			}
			for name, volume := range corrector.Correct(fr, cls, r).Additives {
				assert.Greater(t, volume, 0.0, "%s dd=%g dn=%g", name, dd, dn)
			}
		}
	}
}

func TestDefaultAdditiveName(t *testing.T) {
	assert.Equal(t, "EcoAdd 1", DefaultAdditiveName(recipe.RoleCompo1))
	assert.Equal(t, "EcoAdd 3", DefaultAdditiveName(recipe.RoleCompo3))
}
