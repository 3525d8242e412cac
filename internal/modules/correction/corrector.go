package correction

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/ecowash/internal/modules/recipe"
)

// FallbackAdditive is a configured additive used when a recipe does not list one.
type FallbackAdditive struct {
	Name          string
	Concentration float64
}

// DefaultAdditiveName is the conventional additive name for a free role ("EcoAdd 1" for compo1).
func DefaultAdditiveName(role recipe.Role) string {
	return fmt.Sprintf("EcoAdd %d", int(role)+1)
}

// Correction is the additive dosage for one classified blend.
type Correction struct {
	Additives  map[string]float64 `json:"additives"`
	Missing    []string           `json:"missing_additives,omitempty"`
	Defaulted  []string           `json:"defaulted_additives,omitempty"`
	Incomplete bool               `json:"incomplete"`
}

// Corrector turns a classification into additive volumes.
type Corrector struct {
	fallbacks map[recipe.Role]FallbackAdditive
}

// NewCorrector creates a corrector. fallbacks supply concentrations for roles whose
// recipe additive is absent or unusable; a nil map disables fallbacks.
func NewCorrector(fallbacks map[recipe.Role]FallbackAdditive) *Corrector {
	copied := make(map[recipe.Role]FallbackAdditive, len(fallbacks))
	for role, fb := range fallbacks {
		copied[role] = fb
	}
	return &Corrector{fallbacks: copied}
}

// Correct computes the volume of each additive needed to restore the reference
// ratios relative to the excess component. Only positive deltas need an additive.
func (c *Corrector) Correct(f Fractions, cls Classification, r *recipe.Recipe) Correction {
	ref := cls.Reference
	deltas := make(map[recipe.Role]float64, 2)

	switch cls.Excess {
	case recipe.RoleCompo1:
		deltas[recipe.RoleCompo2] = f.X/ref.A - f.Y
		deltas[recipe.RoleCompo3] = ref.C*f.X - f.Z
	case recipe.RoleCompo2:
		deltas[recipe.RoleCompo1] = ref.A*f.Y - f.X
		deltas[recipe.RoleCompo3] = ref.B*f.Y - f.Z
	case recipe.RoleCompo3:
		deltas[recipe.RoleCompo1] = f.Z/ref.C - f.X
		deltas[recipe.RoleCompo2] = f.Z/ref.B - f.Y
	}

	out := Correction{Additives: make(map[string]float64, len(deltas))}
	for _, role := range recipe.FreeRoles {
		delta, ok := deltas[role]
		if !ok || !(delta > 0) {
			continue
		}

		name, concentration, defaulted, ok := c.resolve(role, r)
		if !ok {
			out.Missing = append(out.Missing, name)
			out.Incomplete = true
			continue
		}

		volume := delta / concentration
		if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
			out.Missing = append(out.Missing, name)
			out.Incomplete = true
			continue
		}
		out.Additives[name] = volume
		if defaulted {
			out.Defaulted = append(out.Defaulted, name)
		}
	}

	sort.Strings(out.Missing)
	sort.Strings(out.Defaulted)
	return out
}

// resolve picks the additive supplying role: the recipe's own when its concentration
// is usable, otherwise the configured fallback.
func (c *Corrector) resolve(role recipe.Role, r *recipe.Recipe) (name string, concentration float64, defaulted, ok bool) {
	name = DefaultAdditiveName(role)
	if add, listed := r.Additive(role); listed {
		name = add.Name
		if usableConcentration(add.Concentration) {
			return name, add.Concentration, false, true
		}
	}

	if fb, found := c.fallbacks[role]; found && usableConcentration(fb.Concentration) {
		if _, listed := r.Additive(role); !listed && fb.Name != "" {
			name = fb.Name
		}
		return name, fb.Concentration, true, true
	}
	return name, 0, false, false
}

func usableConcentration(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
