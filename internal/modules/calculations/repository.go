package calculations

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const recordColumns = `id, recipe, measurement_type, lot_count, density, refraction, tolerance,
	outcome, result, created_at, email, email_sent, email_sent_at`

// HistoryRepository stores calculations in the history database.
// Results are serialized with msgpack using their JSON field names.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repository", "calculation_history").Logger(),
	}
}

// Record appends a calculation.
func (r *HistoryRepository) Record(ctx context.Context, rec *Record) error {
	payload, err := encodeResult(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", rec.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calculations (id, recipe, measurement_type, lot_count, density, refraction,
			tolerance, outcome, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Recipe, rec.MeasurementType, rec.LotCount, rec.Density, rec.Refraction,
		rec.Tolerance, string(rec.Outcome), payload, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert calculation %s: %w", rec.ID, err)
	}

	r.log.Debug().Str("id", rec.ID).Str("recipe", rec.Recipe).Str("outcome", string(rec.Outcome)).Msg("Calculation recorded")
	return nil
}

// Get returns one calculation by id.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM calculations WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calculation %s: %w", id, err)
	}
	return rec, nil
}

// List returns the most recent calculations, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM calculations ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculations: %w", err)
	}
	return records, nil
}

// MarkEmailed records that the result of id was sent to email.
func (r *HistoryRepository) MarkEmailed(ctx context.Context, id, email string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE calculations SET email = ?, email_sent = 1, email_sent_at = ? WHERE id = ?",
		email, sentAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update notification status for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteOlderThan removes calculations created before cutoff.
func (r *HistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM calculations WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old calculations: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec         Record
		outcome     string
		payload     []byte
		createdAt   int64
		email       sql.NullString
		emailSent   int
		emailSentAt sql.NullInt64
	)
	if err := s.Scan(&rec.ID, &rec.Recipe, &rec.MeasurementType, &rec.LotCount, &rec.Density,
		&rec.Refraction, &rec.Tolerance, &outcome, &payload, &createdAt, &email, &emailSent, &emailSentAt); err != nil {
		return nil, err
	}

	result, err := decodeResult(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result for %s: %w", rec.ID, err)
	}

	rec.Outcome = correction.Outcome(outcome)
	rec.Result = result
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.Email = email.String
	rec.EmailSent = emailSent != 0
	if emailSentAt.Valid {
		t := time.Unix(emailSentAt.Int64, 0).UTC()
		rec.EmailSentAt = &t
	}
	return &rec, nil
}

func encodeResult(result *correction.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResult(payload []byte) (*correction.Result, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag("json")

	var result correction.Result
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	// The role enum is not serialized; restore it from its key.
	if result.Classification != nil {
		if role, ok := recipe.ResolveRole(result.Classification.Role); ok {
			result.Classification.Excess = role
		}
	}
	return &result, nil
}
