package recipe

import (
	"math"

	"github.com/rs/zerolog"
)

const (
	// FractionSumTolerance is how far the reference fractions may drift from 1
	// (spreadsheet recipes are typed with four decimals).
	FractionSumTolerance = 0.01

	ratioIdentityTolerance = 1e-9
)

// ComponentRow is one solvent row as read from a recipe table.
// Nil values are cells that were empty or not numeric.
type ComponentRow struct {
	Line            int
	Name            string
	Fraction        *float64
	Density         *float64
	RefractiveIndex *float64
}

// AdditiveRow is one additive concentration as read from a recipe table.
//
// Target names the component (or role) the concentration belongs to. Spreadsheet
// recipes carry one concentration column per free component, so a row is only
// meaningful when the additive name resolves to the same role as its column;
// Explicit rows (YAML) name their target directly and skip that check.
type AdditiveRow struct {
	Line          int
	Name          string
	Target        string
	Concentration *float64
	Explicit      bool
}

// Build validates table rows and assembles an immutable Recipe.
//
// Rows with missing values are skipped with a warning. Build fails with ErrRecipe when
// a free component is missing or duplicated, when a component name is not part of the
// blend model, or when the reference fractions are unusable.
func Build(name string, components []ComponentRow, additives []AdditiveRow, log zerolog.Logger) (*Recipe, error) {
	log = log.With().Str("recipe", name).Logger()

	r := &Recipe{
		name:      name,
		additives: make(map[Role]PureAdditive, 3),
	}
	seen := make(map[Role]bool, 4)
	usableFree := 0

	for _, row := range components {
		if row.Name == "" || row.Fraction == nil || row.Density == nil || row.RefractiveIndex == nil {
			log.Warn().
				Int("line", row.Line).
				Str("component", row.Name).
				Msg("Skipping component row with missing values")
			continue
		}

		role, ok := ResolveRole(row.Name)
		if !ok {
			return nil, recipeErrorf("unsupported component %q on line %d", row.Name, row.Line)
		}
		if seen[role] {
			return nil, recipeErrorf("component %s (%s) is listed more than once", row.Name, role)
		}
		seen[role] = true

		c := Component{
			Name:            row.Name,
			Role:            role,
			Fraction:        *row.Fraction,
			Density:         *row.Density,
			RefractiveIndex: *row.RefractiveIndex,
		}
		if !finite(c.Fraction) || !finite(c.Density) || !finite(c.RefractiveIndex) {
			return nil, recipeErrorf("component %s has non-finite values", c.Name)
		}

		if role == RoleFixed {
			fixed := c
			r.fixed = &fixed
			continue
		}
		r.free[role] = c
		usableFree++
	}

	if usableFree < len(FreeRoles) {
		for _, role := range FreeRoles {
			if !seen[role] {
				return nil, recipeErrorf("required component %s is missing (found %d of 3 free components)", role, usableFree)
			}
		}
	}

	if err := validateFractions(r); err != nil {
		return nil, err
	}

	for _, row := range additives {
		addAdditive(r, row, log)
	}

	log.Debug().
		Int("free_components", usableFree).
		Bool("fixed_component", r.fixed != nil).
		Int("additives", len(r.additives)).
		Msg("Recipe built")

	return r, nil
}

func addAdditive(r *Recipe, row AdditiveRow, log zerolog.Logger) {
	if row.Name == "" || row.Concentration == nil {
		log.Warn().Int("line", row.Line).Str("additive", row.Name).Msg("Skipping additive row with missing values")
		return
	}

	target, ok := ResolveRole(row.Target)
	if !ok || !target.IsFree() {
		log.Warn().Int("line", row.Line).Str("additive", row.Name).Str("target", row.Target).Msg("Skipping additive with unknown target component")
		return
	}

	if !row.Explicit {
		named, ok := ResolveAdditiveRole(row.Name)
		if !ok || named != target {
			return
		}
	}

	if existing, dup := r.additives[target]; dup {
		log.Warn().
			Str("additive", row.Name).
			Str("kept", existing.Name).
			Str("target", target.String()).
			Msg("Ignoring duplicate additive for component")
		return
	}

	r.additives[target] = PureAdditive{
		Name:          row.Name,
		Target:        target,
		Concentration: *row.Concentration,
	}
}

// validateFractions enforces the invariants the classifier relies on: positive free
// fractions, a composition summing to 1, and consistent reference ratios.
func validateFractions(r *Recipe) error {
	sum := 0.0
	for _, c := range r.Components() {
		sum += c.Fraction
	}
	for _, c := range r.free {
		if c.Fraction <= 0 {
			return recipeErrorf("reference fraction of %s must be positive, got %g", c.Name, c.Fraction)
		}
	}
	if r.fixed != nil && (r.fixed.Fraction < 0 || r.fixed.Fraction >= 1) {
		return recipeErrorf("fixed fraction of %s must be in [0, 1), got %g", r.fixed.Name, r.fixed.Fraction)
	}
	if math.Abs(sum-1) > FractionSumTolerance {
		return recipeErrorf("reference fractions sum to %.4f, expected 1", sum)
	}

	r1, r2, r3 := r.free[RoleCompo1].Fraction, r.free[RoleCompo2].Fraction, r.free[RoleCompo3].Fraction
	a, b, c := r1/r2, r3/r2, r3/r1
	if !finite(a) || !finite(b) || !finite(c) {
		return recipeErrorf("reference ratios are not finite")
	}
	// c·a = b for any three positive fractions; a mismatch means corrupted input.
	if math.Abs(c*a-b) > ratioIdentityTolerance*math.Abs(b) {
		return recipeErrorf("reference ratios are inconsistent (c*a=%g, b=%g)", c*a, b)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
