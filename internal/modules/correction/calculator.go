// Package correction computes how much pure additive restores a drifted blend.
//
// The pipeline is: tolerance gate, then a 3x3 solve for the free component fractions,
// then classification of the component in excess, then additive volumes for the
// other two components. Every stage is a pure function of its inputs.
package correction

import (
	"fmt"

	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/rs/zerolog"
)

// Outcome is the terminal state of a successful calculation.
type Outcome string

const (
	OutcomeNoCorrection Outcome = "no_correction"
	OutcomeCorrected    Outcome = "corrected"
)

// Result is the immutable output of one calculation.
type Result struct {
	Recipe         string          `json:"recipe"`
	Outcome        Outcome         `json:"outcome"`
	Measurement    Measurement     `json:"measurement"`
	Gate           GateResult      `json:"gate"`
	Fractions      *Fractions      `json:"fractions,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Correction     *Correction     `json:"correction,omitempty"`
}

// NeedsCorrection reports whether the blend was out of tolerance.
func (r *Result) NeedsCorrection() bool {
	return r.Outcome == OutcomeCorrected
}

// Additives returns the additive volumes, empty when no correction was needed.
func (r *Result) Additives() map[string]float64 {
	if r.Correction == nil {
		return map[string]float64{}
	}
	return r.Correction.Additives
}

// Calculator runs the correction pipeline.
type Calculator struct {
	corrector *Corrector
	log       zerolog.Logger
}

// NewCalculator creates a calculator using corrector for the final stage.
func NewCalculator(corrector *Corrector, log zerolog.Logger) *Calculator {
	return &Calculator{
		corrector: corrector,
		log:       log.With().Str("component", "calculator").Logger(),
	}
}

// Calculate runs gate, solve, classify and correct for one measurement.
func (c *Calculator) Calculate(m Measurement, r *recipe.Recipe, tol float64) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	gate := CheckTolerance(m, r, tol)
	result := &Result{
		Recipe:      r.Name(),
		Measurement: m,
		Gate:        gate,
	}
	if gate.WithinTolerance {
		result.Outcome = OutcomeNoCorrection
		return result, nil
	}

	fractions, err := Solve(m, r)
	if err != nil {
		return nil, fmt.Errorf("failed to solve composition for %s: %w", r.Name(), err)
	}

	cls, err := Classify(fractions, r)
	if err != nil {
		return nil, fmt.Errorf("failed to classify blend for %s: %w", r.Name(), err)
	}

	correction := c.corrector.Correct(fractions, cls, r)
	if correction.Incomplete {
		c.log.Warn().
			Str("recipe", r.Name()).
			Strs("missing_additives", correction.Missing).
			Msg("Correction is incomplete: additive concentration unavailable")
	}

	result.Outcome = OutcomeCorrected
	result.Fractions = &fractions
	result.Classification = &cls
	result.Correction = &correction
	return result, nil
}
