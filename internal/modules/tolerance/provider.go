// Package tolerance provides the acceptance threshold used by the tolerance gate.
package tolerance

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultTolerance is used whenever no usable value is configured.
const DefaultTolerance = 0.005

// DefaultKey is the well-known file holding the tolerance, next to the recipes.
const DefaultKey = "tolerance.txt"

// Opener opens a key in a storage location (a recipe source satisfies it).
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Provider reads the tolerance once per call. It never fails: absent, unreadable,
// non-numeric, negative or non-finite values yield the fallback.
type Provider struct {
	opener   Opener
	key      string
	fallback float64
	log      zerolog.Logger
}

// NewProvider creates a provider reading key from opener. An unusable fallback is
// replaced by DefaultTolerance.
func NewProvider(opener Opener, key string, fallback float64, log zerolog.Logger) *Provider {
	if key == "" {
		key = DefaultKey
	}
	if !usable(fallback) {
		fallback = DefaultTolerance
	}
	return &Provider{
		opener:   opener,
		key:      key,
		fallback: fallback,
		log:      log.With().Str("component", "tolerance_provider").Logger(),
	}
}

// Tolerance returns the configured tolerance or the fallback.
func (p *Provider) Tolerance(ctx context.Context) float64 {
	if p.opener == nil {
		return p.fallback
	}

	body, err := p.opener.Open(ctx, p.key)
	if err != nil {
		p.log.Debug().Err(err).Str("key", p.key).Float64("fallback", p.fallback).Msg("Tolerance not available, using fallback")
		return p.fallback
	}
	defer body.Close()

	// A tolerance file is a single number; anything larger is not one.
	data, err := io.ReadAll(io.LimitReader(body, 64))
	if err != nil {
		p.log.Warn().Err(err).Str("key", p.key).Msg("Failed to read tolerance, using fallback")
		return p.fallback
	}

	raw := strings.TrimSpace(string(data))
	value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || !usable(value) {
		p.log.Warn().Str("key", p.key).Str("value", raw).Float64("fallback", p.fallback).Msg("Invalid tolerance value, using fallback")
		return p.fallback
	}
	return value
}

// Fallback returns the value used when the tolerance file is unusable.
func (p *Provider) Fallback() float64 {
	return p.fallback
}

func usable(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
