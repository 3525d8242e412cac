// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CalculationsTotal counts calculations by outcome (no_correction, corrected, failed).
	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowash_calculations_total",
		Help: "Total calculations by outcome",
	}, []string{"outcome"})

	// CalculationFailuresTotal counts failed calculations by reason.
	CalculationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowash_calculation_failures_total",
		Help: "Total failed calculations by reason",
	}, []string{"reason"})

	// CalculationDuration tracks the duration of a full calculation including recipe load.
	CalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecowash_calculation_duration_seconds",
		Help:    "Calculation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// IncompleteCorrectionsTotal counts corrections missing at least one additive.
	IncompleteCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecowash_incomplete_corrections_total",
		Help: "Corrections returned without every required additive",
	})

	// PersistenceFailuresTotal counts history writes that failed.
	PersistenceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecowash_persistence_failures_total",
		Help: "Calculation history writes that failed",
	})

	// NotificationsTotal counts notification attempts by result (sent, failed, not_configured).
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowash_notifications_total",
		Help: "Notification attempts by result",
	}, []string{"result"})

	// RecipeLoadsTotal counts recipe loads by result (ok, not_found, invalid).
	RecipeLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowash_recipe_loads_total",
		Help: "Recipe loads by result",
	}, []string{"result"})

	// BackupsTotal counts history backups by result (ok, failed).
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowash_backups_total",
		Help: "History database backups by result",
	}, []string{"result"})
)
