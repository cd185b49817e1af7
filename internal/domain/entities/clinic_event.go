package entities

import (
	"time"

	"github.com/google/uuid"
)

// ClinicEventType represents the type of console event
type ClinicEventType string

const (
	ClinicEventRecordingStatus       ClinicEventType = "recording_status"
	ClinicEventQueueAdvanced         ClinicEventType = "queue_advanced"
	ClinicEventConsultationSubmitted ClinicEventType = "consultation_submitted"
)

// ClinicEvent is a real-time notification pushed to open console screens
type ClinicEvent struct {
	ID            string                 `json:"id"`
	Type          ClinicEventType        `json:"type"`
	DoctorID      string                 `json:"doctor_id,omitempty"`
	AppointmentID string                 `json:"appointment_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// NewClinicEvent creates a new clinic event
func NewClinicEvent(eventType ClinicEventType, doctorID, appointmentID string, payload map[string]interface{}) *ClinicEvent {
	return &ClinicEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Timestamp:     time.Now(),
		Payload:       payload,
	}
}

// NewRecordingStatusEvent wraps a recording status for the event stream
func NewRecordingStatusEvent(status RecordingStatus) *ClinicEvent {
	payload := map[string]interface{}{
		"active":    status.Active,
		"recording": status.Recording,
		"phase":     status.Phase,
	}
	if status.Error != "" {
		payload["error"] = status.Error
	}
	return NewClinicEvent(ClinicEventRecordingStatus, "", status.AppointmentID, payload)
}
