package correction

import (
	"fmt"
	"math"

	"github.com/aristath/ecowash/internal/modules/recipe"
	"gonum.org/v1/gonum/mat"
)

// Measurement is a density / refractive index reading taken on a blend.
type Measurement struct {
	Density         float64 `json:"density"`
	RefractiveIndex float64 `json:"refraction"`
}

// Validate reports whether both readings are finite.
func (m Measurement) Validate() error {
	if math.IsNaN(m.Density) || math.IsInf(m.Density, 0) {
		return fmt.Errorf("%w: density %v", ErrMeasurement, m.Density)
	}
	if math.IsNaN(m.RefractiveIndex) || math.IsInf(m.RefractiveIndex, 0) {
		return fmt.Errorf("%w: refractive index %v", ErrMeasurement, m.RefractiveIndex)
	}
	return nil
}

// Fractions are the solved shares of compo1 (X), compo2 (Y) and compo3 (Z).
type Fractions struct {
	X float64 `json:"compo1"`
	Y float64 `json:"compo2"`
	Z float64 `json:"compo3"`
}

// Of returns the fraction solved for a free role.
func (f Fractions) Of(role recipe.Role) float64 {
	switch role {
	case recipe.RoleCompo1:
		return f.X
	case recipe.RoleCompo2:
		return f.Y
	default:
		return f.Z
	}
}

// Solve recovers the free component fractions from a measurement.
//
// The fixed-fraction component, if any, is subtracted from the targets first:
//
//	[IR1 IR2 IR3] [x]   [n - f4*n4]
//	[d1  d2  d3 ] [y] = [d - f4*d4]
//	[1   1   1  ] [z]   [1 - f4   ]
//
// Solver failures (exact singularity or a condition number past gonum's tolerance)
// are returned wrapped in ErrSolve. The solution is not renormalised.
func Solve(m Measurement, r *recipe.Recipe) (Fractions, error) {
	n, d, s := m.RefractiveIndex, m.Density, 1.0
	if fixed, ok := r.Fixed(); ok {
		n -= fixed.Fraction * fixed.RefractiveIndex
		d -= fixed.Fraction * fixed.Density
		s -= fixed.Fraction
	}

	free := r.FreeComponents()
	a := mat.NewDense(3, 3, []float64{
		free[0].RefractiveIndex, free[1].RefractiveIndex, free[2].RefractiveIndex,
		free[0].Density, free[1].Density, free[2].Density,
		1, 1, 1,
	})
	b := mat.NewVecDense(3, []float64{n, d, s})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Fractions{}, fmt.Errorf("%w: %v", ErrSolve, err)
	}

	return Fractions{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, nil
}
