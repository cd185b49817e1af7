package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
)

// UploadOutcome is the result of handing a recording over to the draft
type UploadOutcome struct {
	Result *entities.TranscriptResult  `json:"result"`
	Draft  *entities.ConsultationDraft `json:"draft"`
	Seeded bool                        `json:"seeded"`
}

// ConsultationWorkflow connects a finished recording to the consultation draft
type ConsultationWorkflow struct {
	recordings    *RecordingService
	consultations *ConsultationService
}

// NewConsultationWorkflow creates a new consultation workflow
func NewConsultationWorkflow(recordings *RecordingService, consultations *ConsultationService) *ConsultationWorkflow {
	return &ConsultationWorkflow{
		recordings:    recordings,
		consultations: consultations,
	}
}

// UploadAndSeed uploads the stopped recording and pre-fills the bound
// appointment's draft with the transcript. When the draft was already seeded
// the transcript is returned with the draft left as it was.
func (w *ConsultationWorkflow) UploadAndSeed(ctx context.Context) (*UploadOutcome, error) {
	result, err := w.recordings.Upload(ctx)
	if err != nil {
		return nil, err
	}

	// Seeding must not be lost to a disconnected browser once the upload succeeded.
	ctx = context.WithoutCancel(ctx)
	draft, err := w.consultations.SeedFromTranscript(ctx, *result)
	if err == nil {
		return &UploadOutcome{Result: result, Draft: draft, Seeded: true}, nil
	}
	if !errors.Is(err, entities.ErrAlreadySeeded) {
		return nil, fmt.Errorf("transcript received but the draft could not be seeded: %w", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", result.AppointmentID).
		Msg("Draft already seeded, keeping existing content")

	draft, err = w.consultations.GetDraft(ctx, result.AppointmentID)
	if err != nil {
		return nil, err
	}
	return &UploadOutcome{Result: result, Draft: draft}, nil
}
