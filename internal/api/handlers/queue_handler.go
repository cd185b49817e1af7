package handlers

import (
	"errors"
	"net/http"

	"github.com/zatekoja/doctorconsole/internal/application/services"
)

// QueueHandler handles the doctor's live queue
type QueueHandler struct {
	controller *services.QueueController
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(controller *services.QueueController) *QueueHandler {
	return &QueueHandler{controller: controller}
}

// GetQueue fetches the doctor's current queue
// GET /api/doctors/{doctorId}/queue
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}

	snapshot, err := h.controller.GetSnapshot(r.Context(), doctorID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// AdvanceQueue completes the current consultation and returns the new queue
// POST /api/doctors/{doctorId}/queue/advance
func (h *QueueHandler) AdvanceQueue(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}

	var req services.AdvanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	req.DoctorID = doctorID

	snapshot, err := h.controller.Advance(r.Context(), req)
	if errors.Is(err, services.ErrSnapshotRefreshFailed) {
		respondWithJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":                 err.Error(),
			"appointment_completed": true,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}
