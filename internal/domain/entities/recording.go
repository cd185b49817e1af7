package entities

import (
	"time"
)

// RecordingPhase names the lifecycle stage of a recording session
type RecordingPhase string

const (
	RecordingPhaseIdle      RecordingPhase = "idle"
	RecordingPhaseRecording RecordingPhase = "recording"
	RecordingPhaseStopped   RecordingPhase = "stopped"
	RecordingPhaseUploading RecordingPhase = "uploading"
	RecordingPhaseSucceeded RecordingPhase = "succeeded"
	RecordingPhaseFailed    RecordingPhase = "failed"
)

// AudioPayload is a finalized capture, opaque to the console
type AudioPayload struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

// Size returns the payload length in bytes
func (p AudioPayload) Size() int {
	return len(p.Data)
}

// RecordingState is one variant of the recording lifecycle. Only the types in
// this file implement it.
type RecordingState interface {
	Phase() RecordingPhase
	recordingState()
}

// RecordingIdle means the slot is empty
type RecordingIdle struct{}

// RecordingActive means the capture device is held for AppointmentID
type RecordingActive struct {
	AppointmentID string
	StartedAt     time.Time
}

// RecordingStopped holds a finalized payload waiting for upload
type RecordingStopped struct {
	AppointmentID string
	Payload       AudioPayload
}

// RecordingUploading is an in-flight transcription upload
type RecordingUploading struct {
	AppointmentID string
	Payload       AudioPayload
	UploadID      string
	StartedAt     time.Time
}

// RecordingSucceeded exposes the transcript; the payload has been dropped
type RecordingSucceeded struct {
	AppointmentID string
	Result        TranscriptResult
}

// RecordingFailed keeps the payload so upload can be retried explicitly
type RecordingFailed struct {
	AppointmentID string
	Payload       AudioPayload
	Err           error
	FailedAt      time.Time
}

func (RecordingIdle) Phase() RecordingPhase      { return RecordingPhaseIdle }
func (RecordingActive) Phase() RecordingPhase    { return RecordingPhaseRecording }
func (RecordingStopped) Phase() RecordingPhase   { return RecordingPhaseStopped }
func (RecordingUploading) Phase() RecordingPhase { return RecordingPhaseUploading }
func (RecordingSucceeded) Phase() RecordingPhase { return RecordingPhaseSucceeded }
func (RecordingFailed) Phase() RecordingPhase    { return RecordingPhaseFailed }

func (RecordingIdle) recordingState()      {}
func (RecordingActive) recordingState()    {}
func (RecordingStopped) recordingState()   {}
func (RecordingUploading) recordingState() {}
func (RecordingSucceeded) recordingState() {}
func (RecordingFailed) recordingState()    {}

// AppointmentIDOf returns the appointment bound to a state, or "" when idle
func AppointmentIDOf(state RecordingState) string {
	switch s := state.(type) {
	case RecordingActive:
		return s.AppointmentID
	case RecordingStopped:
		return s.AppointmentID
	case RecordingUploading:
		return s.AppointmentID
	case RecordingSucceeded:
		return s.AppointmentID
	case RecordingFailed:
		return s.AppointmentID
	}
	return ""
}

// RecordingStatus is the view of the slot surfaced to the UI
type RecordingStatus struct {
	Active        bool              `json:"active"`
	Recording     bool              `json:"recording"`
	Phase         RecordingPhase    `json:"phase"`
	AppointmentID string            `json:"appointment_id,omitempty"`
	PayloadBytes  int               `json:"payload_bytes,omitempty"`
	Error         string            `json:"error,omitempty"`
	Result        *TranscriptResult `json:"result,omitempty"`
}

// StatusOf builds the UI view for a state
func StatusOf(state RecordingState) RecordingStatus {
	status := RecordingStatus{
		Phase:         state.Phase(),
		AppointmentID: AppointmentIDOf(state),
	}

	switch s := state.(type) {
	case RecordingActive:
		status.Active = true
		status.Recording = true
	case RecordingStopped:
		status.Active = true
		status.PayloadBytes = s.Payload.Size()
	case RecordingUploading:
		status.Active = true
		status.PayloadBytes = s.Payload.Size()
	case RecordingFailed:
		status.Active = true
		status.PayloadBytes = s.Payload.Size()
		if s.Err != nil {
			status.Error = s.Err.Error()
		}
	case RecordingSucceeded:
		result := s.Result
		status.Result = &result
	}

	return status
}
