package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/domain/repositories"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

// ConsultationService manages consultation drafts and their submission
type ConsultationService struct {
	drafts   repositories.DraftRepository
	writer   providers.ConsultationWriter
	eventBus providers.EventBus
	metrics  *observability.Metrics
	now      func() time.Time

	mu         sync.Mutex
	submitting map[string]bool
}

// NewConsultationService creates a new consultation service
func NewConsultationService(
	drafts repositories.DraftRepository,
	writer providers.ConsultationWriter,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *ConsultationService {
	return &ConsultationService{
		drafts:     drafts,
		writer:     writer,
		eventBus:   eventBus,
		metrics:    metrics,
		now:        time.Now,
		submitting: make(map[string]bool),
	}
}

// GetDraft returns the stored draft for an appointment
func (s *ConsultationService) GetDraft(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	if appointmentID == "" {
		return nil, apperrors.NewValidationError("appointment id is required")
	}
	draft, err := s.drafts.Get(ctx, appointmentID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, appointmentID)
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return draft, nil
}

// OpenDraft returns the appointment's draft, creating a blank one if none exists
func (s *ConsultationService) OpenDraft(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(ctx, appointmentID)
}

func (s *ConsultationService) open(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	draft, err := s.GetDraft(ctx, appointmentID)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, ErrDraftNotFound) {
		return nil, err
	}

	draft = entities.NewConsultationDraft(appointmentID, s.now())
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	observability.LoggerFromContext(ctx).Debug().Str("appointment_id", appointmentID).Msg("Draft opened")
	return draft, nil
}

// mutate loads (or creates) a draft, applies fn and stores the result. The
// stored draft is left untouched when fn fails.
func (s *ConsultationService) mutate(ctx context.Context, appointmentID string, fn func(*entities.ConsultationDraft) error) (*entities.ConsultationDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting[appointmentID] {
		return nil, fmt.Errorf("%w: consultation %s is being submitted", ErrInvalidTransition, appointmentID)
	}

	draft, err := s.open(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	working := draft.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now()

	if err := s.drafts.Save(ctx, working); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return working, nil
}

// UpdateDraft applies manual edits to the draft
func (s *ConsultationService) UpdateDraft(ctx context.Context, appointmentID string, update entities.DraftUpdate) (*entities.ConsultationDraft, error) {
	return s.mutate(ctx, appointmentID, func(d *entities.ConsultationDraft) error {
		d.Apply(update)
		return nil
	})
}

// AddPrescription appends a blank prescription row
func (s *ConsultationService) AddPrescription(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	return s.mutate(ctx, appointmentID, func(d *entities.ConsultationDraft) error {
		d.AddPrescription()
		return nil
	})
}

// RemovePrescription removes a row by id; removing the last row is a no-op
func (s *ConsultationService) RemovePrescription(ctx context.Context, appointmentID string, prescriptionID int) (*entities.ConsultationDraft, error) {
	return s.mutate(ctx, appointmentID, func(d *entities.ConsultationDraft) error {
		if d.RemovePrescription(prescriptionID) {
			return nil
		}
		if len(d.Prescriptions) <= 1 {
			return nil
		}
		return fmt.Errorf("%w: %d", entities.ErrPrescriptionNotFound, prescriptionID)
	})
}

// UpdatePrescription edits one prescription row
func (s *ConsultationService) UpdatePrescription(ctx context.Context, appointmentID string, prescriptionID int, update entities.PrescriptionUpdate) (*entities.ConsultationDraft, error) {
	return s.mutate(ctx, appointmentID, func(d *entities.ConsultationDraft) error {
		_, err := d.UpdatePrescription(prescriptionID, update)
		return err
	})
}

// SeedFromTranscript pre-fills the appointment's draft from a transcription
// result. A draft is seeded at most once.
func (s *ConsultationService) SeedFromTranscript(ctx context.Context, result entities.TranscriptResult) (*entities.ConsultationDraft, error) {
	if result.AppointmentID == "" {
		return nil, apperrors.NewValidationError("transcript has no appointment id")
	}

	draft, err := s.mutate(ctx, result.AppointmentID, func(d *entities.ConsultationDraft) error {
		return d.SeedFromTranscript(result)
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", result.AppointmentID).
		Str("upload_id", result.UploadID).
		Msg("Draft seeded from transcript")
	return draft, nil
}

// Submit validates the draft and sends it to the clinic backend. The draft is
// deleted only after the backend acknowledges; on any failure it stays as it was.
func (s *ConsultationService) Submit(ctx context.Context, appointmentID string) (*entities.ConsultationRecord, error) {
	ctx, span := observability.StartSpan(ctx, "ConsultationService.Submit")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("appointment.id", appointmentID))

	record, err := s.submit(ctx, appointmentID)
	observability.RecordError(span, err)
	observability.RecordSubmit(ctx, s.metrics, err)
	return record, err
}

func (s *ConsultationService) submit(ctx context.Context, appointmentID string) (*entities.ConsultationRecord, error) {
	logger := observability.LoggerFromContext(ctx)

	s.mu.Lock()
	if s.submitting[appointmentID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: consultation %s is already being submitted", ErrInvalidTransition, appointmentID)
	}
	draft, err := s.GetDraft(ctx, appointmentID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := draft.ValidateForSubmit(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting[appointmentID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.submitting, appointmentID)
		s.mu.Unlock()
	}()

	record := draft.Record(s.now())
	record.ID = uuid.New().String()

	// The submission outlives the request that started it.
	ctx = context.WithoutCancel(ctx)
	if err := s.writer.UpdateConsultation(ctx, appointmentID, &record); err != nil {
		logger.Error().Err(err).Str("appointment_id", appointmentID).Msg("Consultation submission failed")
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	if err := s.drafts.Delete(ctx, appointmentID); err != nil {
		logger.Warn().Err(err).Str("appointment_id", appointmentID).Msg("Failed to delete submitted draft")
	}

	logger.Info().
		Str("appointment_id", appointmentID).
		Str("consultation_id", record.ID).
		Int("prescriptions", len(record.Prescriptions)).
		Msg("Consultation submitted")

	if s.eventBus != nil {
		event := entities.NewClinicEvent(entities.ClinicEventConsultationSubmitted, "", appointmentID, map[string]interface{}{
			"consultation_id": record.ID,
		})
		if err := s.eventBus.Publish(ctx, providers.EventChannelConsultation, event); err != nil {
			logger.Warn().Err(err).Str("appointment_id", appointmentID).Msg("Failed to publish consultation event")
		}
	}

	return &record, nil
}

// DiscardDraft deletes the appointment's draft without submitting it
func (s *ConsultationService) DiscardDraft(ctx context.Context, appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting[appointmentID] {
		return fmt.Errorf("%w: consultation %s is being submitted", ErrInvalidTransition, appointmentID)
	}
	if err := s.drafts.Delete(ctx, appointmentID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	observability.LoggerFromContext(ctx).Info().Str("appointment_id", appointmentID).Msg("Draft discarded")
	return nil
}
