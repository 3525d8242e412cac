package correction

import "errors"

var (
	// ErrMeasurement is returned when a measurement is not a finite number.
	ErrMeasurement = errors.New("invalid measurement")
	// ErrSolve is returned when the composition system cannot be solved.
	ErrSolve = errors.New("composition system is singular or ill-conditioned")
	// ErrDivision is returned when a solved fraction used as a ratio denominator is zero.
	ErrDivision = errors.New("solved fraction is zero")
	// ErrClassification is returned when no single component explains the drift.
	ErrClassification = errors.New("cannot determine excess component")
)
