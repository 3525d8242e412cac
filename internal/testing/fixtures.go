package testing

import (
	"testing"

	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/rs/zerolog"
)

// Reference values of the EcoWash default recipe.
const (
	EcoWashRecipeName = "EcoWash - 1B"
	EcoAdd1           = "EcoAdd 1"
	EcoAdd2           = "EcoAdd 2"
	EcoAdd3           = "EcoAdd 3"
)

func ptr(v float64) *float64 { return &v }

// NewEcoWashComponentRows returns the solvent rows of the default recipe
// (ISOL, BZOH, DIPB free; ETOH fixed).
func NewEcoWashComponentRows() []recipe.ComponentRow {
	return []recipe.ComponentRow{
		{Line: 2, Name: "ISOL", Fraction: ptr(0.3836), Density: ptr(0.7674), RefractiveIndex: ptr(1.4274)},
		{Line: 3, Name: "BZOH", Fraction: ptr(0.1885), Density: ptr(1.0450), RefractiveIndex: ptr(1.5384)},
		{Line: 4, Name: "DIPB", Fraction: ptr(0.4186), Density: ptr(0.8570), RefractiveIndex: ptr(1.4890)},
		{Line: 5, Name: "ETOH", Fraction: ptr(0.0092), Density: ptr(0.8330), RefractiveIndex: ptr(1.4310)},
	}
}

// NewEcoWashAdditiveRows returns the additive block of the default recipe.
func NewEcoWashAdditiveRows() []recipe.AdditiveRow {
	return []recipe.AdditiveRow{
		{Line: 2, Name: EcoAdd1, Target: "compo1", Concentration: ptr(0.852)},
		{Line: 3, Name: EcoAdd2, Target: "compo2", Concentration: ptr(0.81)},
		{Line: 4, Name: EcoAdd3, Target: "compo3", Concentration: ptr(0.83)},
	}
}

// NewEcoWashRecipe builds the default recipe with its additives.
func NewEcoWashRecipe(t *testing.T) *recipe.Recipe {
	t.Helper()
	return NewRecipe(t, EcoWashRecipeName, NewEcoWashComponentRows(), NewEcoWashAdditiveRows())
}

// NewEcoWashRecipeWithoutAdditives builds the default recipe with no additive block.
func NewEcoWashRecipeWithoutAdditives(t *testing.T) *recipe.Recipe {
	t.Helper()
	return NewRecipe(t, EcoWashRecipeName, NewEcoWashComponentRows(), nil)
}

// NewRecipe builds a recipe from rows and fails the test on error.
func NewRecipe(t *testing.T, name string, components []recipe.ComponentRow, additives []recipe.AdditiveRow) *recipe.Recipe {
	t.Helper()
	r, err := recipe.Build(name, components, additives, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to build recipe %s: %v", name, err)
	}
	return r
}

// EcoWashRecipeYAML is the default recipe in YAML form, for recipe directory fixtures.
const EcoWashRecipeYAML = `components:
  - {name: ISOL, fraction: 0.3836, density: 0.7674, refractive_index: 1.4274}
  - {name: BZOH, fraction: 0.1885, density: 1.0450, refractive_index: 1.5384}
  - {name: DIPB, fraction: 0.4186, density: 0.8570, refractive_index: 1.4890}
  - {name: ETOH, fraction: 0.0092, density: 0.8330, refractive_index: 1.4310}
additives:
  - {name: EcoAdd 1, component: ISOL, concentration: 0.852}
  - {name: EcoAdd 2, component: BZOH, concentration: 0.81}
  - {name: EcoAdd 3, component: DIPB, concentration: 0.83}
`
