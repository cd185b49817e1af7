package entities

import (
	"strings"
	"time"
)

// Vitals holds the vital signs extracted from a consultation recording
type Vitals struct {
	BloodPressure string `json:"blood_pressure"`
	Pulse         string `json:"pulse"`
	Temperature   string `json:"temperature"`
}

// Format renders the vitals as a single physical examination line
func (v Vitals) Format() string {
	parts := make([]string, 0, 3)
	if bp := strings.TrimSpace(v.BloodPressure); bp != "" {
		parts = append(parts, "BP: "+bp)
	}
	if pulse := strings.TrimSpace(v.Pulse); pulse != "" {
		parts = append(parts, "Pulse: "+pulse)
	}
	if temp := strings.TrimSpace(v.Temperature); temp != "" {
		parts = append(parts, "Temp: "+temp)
	}
	return strings.Join(parts, ", ")
}

// TranscriptResult is the structured output of one successful transcription upload
type TranscriptResult struct {
	UploadID                  string    `json:"upload_id"`
	AppointmentID             string    `json:"appointment_id"`
	ChiefComplaint            string    `json:"chief_complaint"`
	HistoryOfIllness          string    `json:"history_of_illness"`
	Vitals                    Vitals    `json:"vitals"`
	Allergies                 string    `json:"allergies"`
	FollowUpInstruction       string    `json:"follow_up_instruction"`
	NextAppointmentSuggestion string    `json:"next_appointment_suggestion"`
	ReceivedAt                time.Time `json:"received_at"`
}
