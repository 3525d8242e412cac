package correction

import (
	"math"

	"github.com/aristath/ecowash/internal/modules/recipe"
)

// GateResult compares a measurement with the recipe's theoretical bulk properties.
type GateResult struct {
	TheoreticalDensity         float64 `json:"theoretical_density"`
	TheoreticalRefractiveIndex float64 `json:"theoretical_refraction"`
	DensityDeviation           float64 `json:"density_deviation"`
	RefractiveIndexDeviation   float64 `json:"refraction_deviation"`
	Tolerance                  float64 `json:"tolerance"`
	WithinTolerance            bool    `json:"within_tolerance"`
}

// Theoretical returns the fraction-weighted density and refractive index of every component.
func Theoretical(r *recipe.Recipe) (density, refractiveIndex float64) {
	for _, c := range r.Components() {
		density += c.Fraction * c.Density
		refractiveIndex += c.Fraction * c.RefractiveIndex
	}
	return density, refractiveIndex
}

// CheckTolerance reports whether both deviations are under tol. An exact match always
// passes, including with a zero tolerance.
func CheckTolerance(m Measurement, r *recipe.Recipe, tol float64) GateResult {
	density, ir := Theoretical(r)
	dd := math.Abs(density - m.Density)
	dn := math.Abs(ir - m.RefractiveIndex)

	return GateResult{
		TheoreticalDensity:         density,
		TheoreticalRefractiveIndex: ir,
		DensityDeviation:           dd,
		RefractiveIndexDeviation:   dn,
		Tolerance:                  tol,
		WithinTolerance:            within(dd, tol) && within(dn, tol),
	}
}

func within(deviation, tol float64) bool {
	return deviation == 0 || deviation < tol
}
