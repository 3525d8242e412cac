package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// CalculationCompletedData contains data for CalculationCompleted events
type CalculationCompletedData struct {
	CalculationID string             `json:"calculation_id"`
	Recipe        string             `json:"recipe"`
	Outcome       string             `json:"outcome"`
	Density       float64            `json:"density"`
	Refraction    float64            `json:"refraction"`
	ExcessRole    string             `json:"excess_role,omitempty"`
	Additives     map[string]float64 `json:"additives,omitempty"`
	Incomplete    bool               `json:"incomplete,omitempty"`
}

// EventType returns the event type for CalculationCompletedData
func (d *CalculationCompletedData) EventType() EventType {
	return CalculationCompleted
}

// CalculationFailedData contains data for CalculationFailed events
type CalculationFailedData struct {
	Recipe string `json:"recipe"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// EventType returns the event type for CalculationFailedData
func (d *CalculationFailedData) EventType() EventType {
	return CalculationFailed
}

// NotificationData contains data for NotificationSent and NotificationFailed events
type NotificationData struct {
	CalculationID string `json:"calculation_id,omitempty"`
	Recipient     string `json:"recipient"`
	Error         string `json:"error,omitempty"`
}

// EventType returns NotificationFailed when an error is set, NotificationSent otherwise
func (d *NotificationData) EventType() EventType {
	if d.Error != "" {
		return NotificationFailed
	}
	return NotificationSent
}

// RecipesChangedData contains data for RecipesChanged events
type RecipesChangedData struct {
	Path string `json:"path"`
}

// EventType returns the event type for RecipesChangedData
func (d *RecipesChangedData) EventType() EventType {
	return RecipesChanged
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
