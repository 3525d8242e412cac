package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/ecowash/internal/events"
	"github.com/aristath/ecowash/internal/metrics"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownCalculation is returned when the request names a calculation that is not stored.
	ErrUnknownCalculation = errors.New("unknown calculation")
	// ErrDelivery is returned when the mailer could not deliver the message.
	ErrDelivery = errors.New("email delivery failed")
)

// History reads stored calculations and records who they were sent to.
type History interface {
	Get(ctx context.Context, id string) (*calculations.Record, error)
	MarkEmailed(ctx context.Context, id, email string, sentAt time.Time) error
}

// Request asks for one result email. Inputs and Results as posted by the web form take
// precedence; missing values are taken from the stored calculation.
type Request struct {
	Email         string
	CalculationID string
	Inputs        map[string]interface{}
	Results       map[string]float64
}

// Receipt describes the outcome of a notification request.
type Receipt struct {
	Subject string
	// Sent is false when no relay is configured and the message was only logged.
	Sent bool
	// Recorded is false when the email went out but the history row could not be updated.
	Recorded bool
}

// Service renders and sends result emails.
type Service struct {
	mailer  Mailer
	history History
	events  *events.Manager
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a notification service. history and eventManager may be nil.
func NewService(mailer Mailer, history History, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		mailer:  mailer,
		history: history,
		events:  eventManager,
		log:     log.With().Str("service", "notification").Logger(),
		now:     time.Now,
	}
}

// Send emails the result and marks the calculation as sent. Delivery failures never
// touch the stored calculation. Without a relay the message is only logged and the
// receipt reports Sent=false.
func (s *Service) Send(ctx context.Context, req Request) (*Receipt, error) {
	var rec *calculations.Record
	if req.CalculationID != "" && s.history != nil {
		stored, err := s.history.Get(ctx, req.CalculationID)
		switch {
		case errors.Is(err, calculations.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrUnknownCalculation, req.CalculationID)
		case err != nil:
			s.log.Warn().Err(err).Str("calculation_id", req.CalculationID).Msg("Failed to load calculation, using posted values")
		default:
			rec = stored
		}
	}

	now := s.now()
	msg, err := Render(req.Email, summarize(req, rec), now)
	if err != nil {
		return nil, err
	}

	err = s.mailer.Send(ctx, msg)
	if errors.Is(err, ErrNotConfigured) {
		metrics.NotificationsTotal.WithLabelValues("not_configured").Inc()
		s.log.Warn().Str("to", req.Email).Str("calculation_id", req.CalculationID).Msg("Result email not sent, no SMTP relay configured")
		s.emit(req, err)
		return &Receipt{Subject: msg.Subject}, nil
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("to", req.Email).Str("calculation_id", req.CalculationID).Msg("Failed to send result email")
		s.emit(req, err)
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()

	receipt := &Receipt{Subject: msg.Subject, Sent: true}
	if req.CalculationID != "" && s.history != nil {
		if err := s.history.MarkEmailed(ctx, req.CalculationID, req.Email, now); err != nil {
			s.log.Error().Err(err).Str("calculation_id", req.CalculationID).Msg("Failed to record email status")
		} else {
			receipt.Recorded = true
		}
	}

	s.log.Info().Str("to", req.Email).Str("calculation_id", req.CalculationID).Msg("Result email sent")
	s.emit(req, nil)
	return receipt, nil
}

func (s *Service) emit(req Request, err error) {
	if s.events == nil {
		return
	}
	data := &events.NotificationData{
		CalculationID: req.CalculationID,
		Recipient:     req.Email,
	}
	if err != nil {
		data.Error = err.Error()
	}
	s.events.EmitTyped("notification", data)
}

// inputKeys lists accepted spellings per summary field, French form names first.
var inputKeys = map[string][]string{
	"model":            {"modele", "model", "recipe"},
	"measurement_type": {"choix", "measurement_type"},
	"lot_count":        {"nb_lots", "lot_count"},
	"density":          {"densite", "density"},
	"refraction":       {"refraction", "refractionIndex"},
}

func summarize(req Request, rec *calculations.Record) Summary {
	summary := Summary{
		CalculationID:   req.CalculationID,
		Model:           input(req.Inputs, "model"),
		MeasurementType: input(req.Inputs, "measurement_type"),
		LotCount:        input(req.Inputs, "lot_count"),
		Density:         input(req.Inputs, "density"),
		Refraction:      input(req.Inputs, "refraction"),
	}
	results := req.Results

	if rec != nil {
		fill(&summary.Model, rec.Recipe)
		fill(&summary.MeasurementType, rec.MeasurementType)
		fill(&summary.LotCount, strconv.Itoa(rec.LotCount))
		fill(&summary.Density, formatNumber(rec.Density))
		fill(&summary.Refraction, formatNumber(rec.Refraction))
		if len(results) == 0 && rec.Result != nil {
			results = rec.Result.Additives()
		}
	}

	summary.Additives = SortedAdditives(results)
	return summary
}

func input(inputs map[string]interface{}, field string) string {
	for _, key := range inputKeys[field] {
		v, ok := inputs[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case float64:
			s = formatNumber(val)
		case string:
			s = strings.TrimSpace(val)
		default:
			s = fmt.Sprint(val)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func fill(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
