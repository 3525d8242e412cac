// Package handlers provides HTTP handlers for result notifications.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/aristath/ecowash/internal/modules/notification"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// SendMailRequest is the body of POST /api/send-mail. donnees and resultats are the
// field names posted by the workstation web form.
type SendMailRequest struct {
	Email         string                 `json:"email" validate:"required,email,max=254"`
	CalculationID string                 `json:"calculationId" validate:"omitempty,max=64"`
	Inputs        map[string]interface{} `json:"inputs"`
	Donnees       map[string]interface{} `json:"donnees"`
	Results       map[string]float64     `json:"results"`
	Resultats     map[string]float64     `json:"resultats"`
}

// Handler handles notification HTTP requests
type Handler struct {
	service *notification.Service
	log     zerolog.Logger
}

// NewHandler creates a new notification handler
func NewHandler(service *notification.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "notification").Logger(),
	}
}

// HandleSendMail handles POST /api/send-mail
func (h *Handler) HandleSendMail(w http.ResponseWriter, r *http.Request) {
	var req SendMailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.CalculationID = strings.TrimSpace(req.CalculationID)

	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	inputs := req.Inputs
	if len(inputs) == 0 {
		inputs = req.Donnees
	}
	results := req.Results
	if len(results) == 0 {
		results = req.Resultats
	}

	receipt, err := h.service.Send(r.Context(), notification.Request{
		Email:         req.Email,
		CalculationID: req.CalculationID,
		Inputs:        inputs,
		Results:       results,
	})
	if err != nil {
		switch {
		case errors.Is(err, notification.ErrUnknownCalculation):
			h.writeError(w, http.StatusNotFound, "Calculation not found")
		case errors.Is(err, notification.ErrDelivery):
			h.writeError(w, http.StatusBadGateway, "Failed to send email")
		default:
			h.log.Error().Err(err).Msg("Failed to send result email")
			h.writeError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	if !receipt.Sent {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  false,
			"sent":     false,
			"message":  "Email not sent: no SMTP relay configured",
			"recorded": false,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sent":     true,
		"message":  "Email sent successfully",
		"recorded": receipt.Recorded,
	})
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
