// Package events provides in-process event publication for calculation activity.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	CalculationCompleted EventType = "CALCULATION_COMPLETED"
	CalculationFailed    EventType = "CALCULATION_FAILED"
	NotificationSent     EventType = "NOTIFICATION_SENT"
	NotificationFailed   EventType = "NOTIFICATION_FAILED"
	RecipesChanged       EventType = "RECIPES_CHANGED"
	BackupCompleted      EventType = "BACKUP_COMPLETED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type, in declaration order.
var AllEventTypes = []EventType{
	CalculationCompleted,
	CalculationFailed,
	NotificationSent,
	NotificationFailed,
	RecipesChanged,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
