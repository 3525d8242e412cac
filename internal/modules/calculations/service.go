package calculations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/ecowash/internal/events"
	"github.com/aristath/ecowash/internal/metrics"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecipeCatalog resolves recipe selectors.
type RecipeCatalog interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, selector string) (*recipe.Recipe, error)
}

// ToleranceProvider supplies the gate tolerance for each calculation.
type ToleranceProvider interface {
	Tolerance(ctx context.Context) float64
}

// History is the calculation store.
type History interface {
	Record(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// Service runs calculations and records them.
type Service struct {
	catalog    RecipeCatalog
	tolerance  ToleranceProvider
	calculator *correction.Calculator
	history    History
	events     *events.Manager
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a calculation service. history and eventManager may be nil
// (the operator CLI runs without either).
func NewService(
	catalog RecipeCatalog,
	tolerance ToleranceProvider,
	calculator *correction.Calculator,
	history History,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		catalog:    catalog,
		tolerance:  tolerance,
		calculator: calculator,
		history:    history,
		events:     eventManager,
		log:        log.With().Str("service", "calculations").Logger(),
		now:        time.Now,
	}
}

// Calculate loads the recipe, runs the correction pipeline and records the result.
// A failed history write is logged and reported through Calculation.Persisted only.
func (s *Service) Calculate(ctx context.Context, req Request) (*Calculation, error) {
	start := s.now()
	defer func() {
		metrics.CalculationDuration.Observe(s.now().Sub(start).Seconds())
	}()

	r, err := s.catalog.Load(ctx, req.Recipe)
	if err != nil {
		s.fail(req, err)
		return nil, fmt.Errorf("failed to load recipe %q: %w", req.Recipe, err)
	}
	metrics.RecipeLoadsTotal.WithLabelValues("ok").Inc()

	tol := s.tolerance.Tolerance(ctx)
	result, err := s.calculator.Calculate(req.Measurement, r, tol)
	if err != nil {
		s.fail(req, err)
		return nil, err
	}

	calc := &Calculation{
		ID:        uuid.NewString(),
		Tolerance: tol,
		Result:    result,
	}
	calc.Persisted = s.record(ctx, req, calc)

	metrics.CalculationsTotal.WithLabelValues(string(result.Outcome)).Inc()
	if result.Correction != nil && result.Correction.Incomplete {
		metrics.IncompleteCorrectionsTotal.Inc()
	}

	s.emitCompleted(calc)

	s.log.Info().
		Str("calculation_id", calc.ID).
		Str("recipe", result.Recipe).
		Str("outcome", string(result.Outcome)).
		Float64("tolerance", tol).
		Msg("Calculation completed")

	return calc, nil
}

// Recipes lists the available recipe selectors.
func (s *Service) Recipes(ctx context.Context) ([]string, error) {
	return s.catalog.List(ctx)
}

// Get returns a stored calculation.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.history.Get(ctx, id)
}

// List returns the most recent stored calculations.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	if s.history == nil {
		return []Record{}, nil
	}
	return s.history.List(ctx, limit)
}

func (s *Service) record(ctx context.Context, req Request, calc *Calculation) bool {
	if s.history == nil {
		return false
	}

	rec := &Record{
		ID:              calc.ID,
		Recipe:          calc.Result.Recipe,
		MeasurementType: req.MeasurementType,
		LotCount:        req.LotCount,
		Density:         req.Measurement.Density,
		Refraction:      req.Measurement.RefractiveIndex,
		Tolerance:       calc.Tolerance,
		Outcome:         calc.Result.Outcome,
		Result:          calc.Result,
		CreatedAt:       s.now(),
	}
	if err := s.history.Record(ctx, rec); err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.log.Error().Err(err).Str("calculation_id", calc.ID).Msg("Failed to record calculation")
		return false
	}
	return true
}

func (s *Service) fail(req Request, err error) {
	reason := FailureReason(err)
	metrics.CalculationsTotal.WithLabelValues("failed").Inc()
	metrics.CalculationFailuresTotal.WithLabelValues(reason).Inc()
	switch reason {
	case "recipe_not_found", "invalid_selector", "invalid_recipe":
		metrics.RecipeLoadsTotal.WithLabelValues(reason).Inc()
	}

	s.log.Warn().Err(err).Str("recipe", req.Recipe).Str("reason", reason).Msg("Calculation failed")

	if s.events != nil {
		s.events.EmitTyped("calculations", &events.CalculationFailedData{
			Recipe: req.Recipe,
			Reason: reason,
			Error:  err.Error(),
		})
	}
}

func (s *Service) emitCompleted(calc *Calculation) {
	if s.events == nil {
		return
	}
	data := &events.CalculationCompletedData{
		CalculationID: calc.ID,
		Recipe:        calc.Result.Recipe,
		Outcome:       string(calc.Result.Outcome),
		Density:       calc.Result.Measurement.Density,
		Refraction:    calc.Result.Measurement.RefractiveIndex,
		Additives:     calc.Result.Additives(),
	}
	if cls := calc.Result.Classification; cls != nil {
		data.ExcessRole = cls.Role
	}
	if c := calc.Result.Correction; c != nil {
		data.Incomplete = c.Incomplete
	}
	s.events.EmitTyped("calculations", data)
}

// FailureReason maps a calculation error to a short, stable reason label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, recipe.ErrInvalidSelector):
		return "invalid_selector"
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return "recipe_not_found"
	case errors.Is(err, recipe.ErrRecipe):
		return "invalid_recipe"
	case errors.Is(err, correction.ErrMeasurement):
		return "invalid_measurement"
	case errors.Is(err, correction.ErrSolve):
		return "solve"
	case errors.Is(err, correction.ErrDivision):
		return "division"
	case errors.Is(err, correction.ErrClassification):
		return "classification"
	default:
		return "internal"
	}
}
