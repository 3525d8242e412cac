package correction

import (
	"fmt"

	"github.com/aristath/ecowash/internal/modules/recipe"
)

// Ratios is a pairwise ratio triple: A = compo1/compo2, B = compo3/compo2, C = compo3/compo1.
type Ratios struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// ReferenceRatios returns the ratio triple of the recipe's reference fractions.
func ReferenceRatios(r *recipe.Recipe) Ratios {
	r1 := r.Free(recipe.RoleCompo1).Fraction
	r2 := r.Free(recipe.RoleCompo2).Fraction
	r3 := r.Free(recipe.RoleCompo3).Fraction
	return Ratios{A: r1 / r2, B: r3 / r2, C: r3 / r1}
}

// Classification names the free component in relative excess.
type Classification struct {
	Excess    recipe.Role `json:"-"`
	Role      string      `json:"excess_role"`
	Component string      `json:"excess_component"`
	Reference Ratios      `json:"reference_ratios"`
	Current   Ratios      `json:"current_ratios"`
}

// Classify decides which free component is in excess. Branches are tried in
// compo1, compo2, compo3 order; the first match wins.
func Classify(f Fractions, r *recipe.Recipe) (Classification, error) {
	if f.X == 0 || f.Y == 0 {
		return Classification{}, fmt.Errorf("%w: compo1=%g compo2=%g", ErrDivision, f.X, f.Y)
	}

	ref := ReferenceRatios(r)
	cur := Ratios{A: f.X / f.Y, B: f.Z / f.Y, C: f.Z / f.X}

	var excess recipe.Role
	switch {
	case cur.A > ref.A && cur.C < ref.C:
		excess = recipe.RoleCompo1
	case cur.A < ref.A && cur.B < ref.B:
		excess = recipe.RoleCompo2
	case cur.B > ref.B && cur.C > ref.C:
		excess = recipe.RoleCompo3
	default:
		return Classification{}, fmt.Errorf("%w: current ratios a=%g b=%g c=%g", ErrClassification, cur.A, cur.B, cur.C)
	}

	return Classification{
		Excess:    excess,
		Role:      excess.String(),
		Component: r.Free(excess).Name,
		Reference: ref,
		Current:   cur,
	}, nil
}
