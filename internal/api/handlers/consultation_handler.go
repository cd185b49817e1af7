package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/doctorconsole/internal/application/services"
	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// ConsultationHandler handles consultation drafts and submission
type ConsultationHandler struct {
	consultations *services.ConsultationService
}

// NewConsultationHandler creates a new consultation handler
func NewConsultationHandler(consultations *services.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{consultations: consultations}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("appointmentId")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return "", false
	}
	return id, true
}

func prescriptionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		respondWithError(w, http.StatusBadRequest, "invalid prescription ID")
		return 0, false
	}
	return id, true
}

// GetDraft returns the appointment's draft, opening a blank one if needed
// GET /api/consultations/{appointmentId}/draft
func (h *ConsultationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	draft, err := h.consultations.OpenDraft(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, draft)
}

// UpdateDraft applies manual edits
// PATCH /api/consultations/{appointmentId}/draft
func (h *ConsultationHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var update entities.DraftUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	draft, err := h.consultations.UpdateDraft(r.Context(), id, update)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, draft)
}

// DiscardDraft deletes the draft without submitting
// DELETE /api/consultations/{appointmentId}/draft
func (h *ConsultationHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	if err := h.consultations.DiscardDraft(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddPrescription appends a blank prescription row
// POST /api/consultations/{appointmentId}/draft/prescriptions
func (h *ConsultationHandler) AddPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	draft, err := h.consultations.AddPrescription(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, draft)
}

// UpdatePrescription edits one prescription row
// PATCH /api/consultations/{appointmentId}/draft/prescriptions/{id}
func (h *ConsultationHandler) UpdatePrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	rowID, ok := prescriptionID(w, r)
	if !ok {
		return
	}

	var update entities.PrescriptionUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	draft, err := h.consultations.UpdatePrescription(r.Context(), id, rowID, update)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, draft)
}

// RemovePrescription removes a prescription row
// DELETE /api/consultations/{appointmentId}/draft/prescriptions/{id}
func (h *ConsultationHandler) RemovePrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	rowID, ok := prescriptionID(w, r)
	if !ok {
		return
	}

	draft, err := h.consultations.RemovePrescription(r.Context(), id, rowID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, draft)
}

// SubmitConsultation sends the draft to the clinic backend
// POST /api/consultations/{appointmentId}/submit
func (h *ConsultationHandler) SubmitConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	record, err := h.consultations.Submit(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}
