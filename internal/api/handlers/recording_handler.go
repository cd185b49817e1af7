package handlers

import (
	"io"
	"net/http"

	"github.com/zatekoja/doctorconsole/internal/application/services"
)

const maxAudioChunk = 32 << 20

// StartRecordingRequest starts a recording for an appointment
type StartRecordingRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
}

// RecordingHandler handles the workstation's recording session
type RecordingHandler struct {
	recordings *services.RecordingService
	workflow   *services.ConsultationWorkflow
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordings *services.RecordingService, workflow *services.ConsultationWorkflow) *RecordingHandler {
	return &RecordingHandler{
		recordings: recordings,
		workflow:   workflow,
	}
}

// GetCurrent returns the recording status
// GET /api/recordings/current
func (h *RecordingHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.recordings.Status())
}

// StartRecording binds a new recording to an appointment
// POST /api/recordings
func (h *RecordingHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req StartRecordingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	status, err := h.recordings.Start(r.Context(), req.AppointmentID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, status)
}

// WriteAudio appends a captured chunk posted by the browser
// POST /api/recordings/current/audio
func (h *RecordingHandler) WriteAudio(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioChunk))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "audio chunk too large")
		return
	}

	if err := h.recordings.WriteAudio(r.Context(), chunk); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StopRecording finalizes the capture
// POST /api/recordings/current/stop
func (h *RecordingHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	status, err := h.recordings.Stop(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// UploadRecording sends the recording for transcription and seeds the draft
// POST /api/recordings/current/upload
func (h *RecordingHandler) UploadRecording(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.workflow.UploadAndSeed(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// DiscardRecording abandons the current recording
// DELETE /api/recordings/current
func (h *RecordingHandler) DiscardRecording(w http.ResponseWriter, r *http.Request) {
	status, err := h.recordings.Discard(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
