// Package calculations orchestrates blend correction requests and keeps their history.
package calculations

import (
	"errors"
	"time"

	"github.com/aristath/ecowash/internal/modules/correction"
)

// ErrNotFound is returned when no calculation has the requested id.
var ErrNotFound = errors.New("calculation not found")

// Request is one calculation request as received at the boundary.
type Request struct {
	Recipe          string
	Measurement     correction.Measurement
	MeasurementType string
	LotCount        int
}

// Calculation is the outcome returned to the caller.
type Calculation struct {
	ID        string
	Tolerance float64
	Result    *correction.Result
	// Persisted is false when the history write failed; the result is still valid.
	Persisted bool
}

// Record is a stored calculation.
type Record struct {
	ID              string             `json:"id"`
	Recipe          string             `json:"recipe"`
	MeasurementType string             `json:"measurement_type"`
	LotCount        int                `json:"lot_count"`
	Density         float64            `json:"density"`
	Refraction      float64            `json:"refraction"`
	Tolerance       float64            `json:"tolerance"`
	Outcome         correction.Outcome `json:"outcome"`
	Result          *correction.Result `json:"result"`
	CreatedAt       time.Time          `json:"created_at"`
	Email           string             `json:"email,omitempty"`
	EmailSent       bool               `json:"email_sent"`
	EmailSentAt     *time.Time         `json:"email_sent_at,omitempty"`
}
