// Package handlers provides HTTP handlers for blend correction calculations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/ecowash/internal/events"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxListLimit = 500

// Handler handles calculation HTTP requests
type Handler struct {
	service        *calculations.Service
	bus            *events.Bus
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new calculations handler. bus feeds the websocket stream and may be nil.
// originPatterns are the cross-origin hosts allowed to open the stream.
func NewHandler(service *calculations.Service, bus *events.Bus, originPatterns []string, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		bus:            bus,
		originPatterns: originPatterns,
		log:            log.With().Str("handler", "calculations").Logger(),
	}
}

// CorrectionResponse is the "result" object of a corrected calculation.
type CorrectionResponse struct {
	Additives          map[string]float64    `json:"additives"`
	Incomplete         bool                  `json:"incomplete"`
	MissingAdditives   []string              `json:"missingAdditives"`
	DefaultedAdditives []string              `json:"defaultedAdditives"`
	ExcessComponent    string                `json:"excessComponent"`
	ExcessRole         string                `json:"excessRole"`
	Fractions          *correction.Fractions `json:"fractions,omitempty"`
}

// HandleCalculate handles POST /api/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := req.normalize()
	if err := validate.Struct(in); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	calc, err := h.service.Calculate(r.Context(), calculations.Request{
		Recipe: in.Recipe,
		Measurement: correction.Measurement{
			Density:         *in.Density,
			RefractiveIndex: *in.Refraction,
		},
		MeasurementType: in.MeasurementType,
		LotCount:        in.LotCount,
	})
	if err != nil {
		status, message := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("recipe", in.Recipe).Msg("Calculation failed")
		}
		h.writeError(w, status, message)
		return
	}

	result := calc.Result
	if !result.NeedsCorrection() {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"message":       "No rebalancing needed",
			"tolerance":     calc.Tolerance,
			"calculationId": calc.ID,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"result":        correctionResponse(result),
		"tolerance":     calc.Tolerance,
		"calculationId": calc.ID,
	})
}

// HandleListRecipes handles GET /api/recipes
func (h *Handler) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	names, ok := h.recipes(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"recipes": names,
	})
}

// HandleListRecipesLegacy handles GET /recette. The workstation form expects a bare array.
func (h *Handler) HandleListRecipesLegacy(w http.ResponseWriter, r *http.Request) {
	names, ok := h.recipes(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, names)
}

func (h *Handler) recipes(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	names, err := h.service.Recipes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list recipes")
		h.writeError(w, http.StatusInternalServerError, "Failed to list recipes")
		return nil, false
	}
	if names == nil {
		names = []string{}
	}
	return names, true
}

// HandleListCalculations handles GET /api/calculations
func (h *Handler) HandleListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list calculations")
		h.writeError(w, http.StatusInternalServerError, "Failed to list calculations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"calculations": records,
		"count":        len(records),
	})
}

// HandleGetCalculation handles GET /api/calculations/{id}
func (h *Handler) HandleGetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, calculations.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Calculation not found")
			return
		}
		h.log.Error().Err(err).Str("calculation_id", id).Msg("Failed to get calculation")
		h.writeError(w, http.StatusInternalServerError, "Failed to get calculation")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"calculation": rec,
	})
}

func correctionResponse(result *correction.Result) CorrectionResponse {
	resp := CorrectionResponse{
		Additives:          result.Additives(),
		MissingAdditives:   []string{},
		DefaultedAdditives: []string{},
		Fractions:          result.Fractions,
	}
	if c := result.Correction; c != nil {
		resp.Incomplete = c.Incomplete
		if c.Missing != nil {
			resp.MissingAdditives = c.Missing
		}
		if c.Defaulted != nil {
			resp.DefaultedAdditives = c.Defaulted
		}
	}
	if cls := result.Classification; cls != nil {
		resp.ExcessComponent = cls.Component
		resp.ExcessRole = cls.Role
	}
	return resp
}

// errorResponse maps a calculation error to a status code and a user-facing message.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, recipe.ErrInvalidSelector):
		return http.StatusBadRequest, "Invalid recipe name"
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return http.StatusBadRequest, "Recipe not found"
	case errors.Is(err, recipe.ErrRecipe):
		return http.StatusBadRequest, "Invalid recipe data"
	case errors.Is(err, correction.ErrMeasurement):
		return http.StatusBadRequest, "Invalid measurement"
	case errors.Is(err, correction.ErrSolve):
		return http.StatusUnprocessableEntity, "Cannot solve blend composition"
	case errors.Is(err, correction.ErrDivision):
		return http.StatusUnprocessableEntity, "Degenerate blend composition"
	case errors.Is(err, correction.ErrClassification):
		return http.StatusUnprocessableEntity, "Cannot determine excess component"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
