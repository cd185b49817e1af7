package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

// AdvanceRequest asks to close the current consultation
type AdvanceRequest struct {
	DoctorID      string `json:"doctor_id"`
	AppointmentID string `json:"appointment_id" validate:"required"`
	Confirmed     bool   `json:"confirmed"`
}

// QueueController keeps the last known queue per doctor and moves it forward.
// The clinic backend owns queue order; the controller never guesses who is next.
type QueueController struct {
	source    providers.QueueSource
	completer providers.AppointmentCompleter
	eventBus  providers.EventBus
	metrics   *observability.Metrics

	mu        sync.RWMutex
	snapshots map[string]*entities.QueueSnapshot
	advancing map[string]bool
}

// NewQueueController creates a new queue controller
func NewQueueController(
	source providers.QueueSource,
	completer providers.AppointmentCompleter,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *QueueController {
	return &QueueController{
		source:    source,
		completer: completer,
		eventBus:  eventBus,
		metrics:   metrics,
		snapshots: make(map[string]*entities.QueueSnapshot),
		advancing: make(map[string]bool),
	}
}

// GetSnapshot fetches the doctor's queue and makes it the authoritative snapshot.
// On failure the previous snapshot is kept.
func (c *QueueController) GetSnapshot(ctx context.Context, doctorID string) (*entities.QueueSnapshot, error) {
	if doctorID == "" {
		return nil, apperrors.NewValidationError("doctor id is required")
	}

	snapshot, err := c.source.FetchQueueSnapshot(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue for doctor %s: %w", doctorID, err)
	}
	if snapshot == nil {
		return nil, apperrors.NewExternalError("clinic backend returned no queue", nil)
	}

	snapshot.DoctorID = doctorID
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}
	snapshot.Normalize()
	if err := snapshot.Validate(); err != nil {
		return nil, apperrors.NewExternalError("clinic backend returned an invalid queue", err)
	}

	c.mu.Lock()
	c.snapshots[doctorID] = snapshot.Clone()
	c.mu.Unlock()

	return snapshot, nil
}

// LastSnapshot returns the last known snapshot without calling the backend
func (c *QueueController) LastSnapshot(doctorID string) (*entities.QueueSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.snapshots[doctorID]
	if !ok {
		return nil, false
	}
	return snapshot.Clone(), true
}

// Advance completes the current patient's appointment and returns the queue
// the backend reports afterwards
func (c *QueueController) Advance(ctx context.Context, req AdvanceRequest) (*entities.QueueSnapshot, error) {
	ctx, span := observability.StartSpan(ctx, "QueueController.Advance")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("doctor.id", req.DoctorID),
		attribute.String("appointment.id", req.AppointmentID),
	)

	snapshot, err := c.advance(ctx, req)
	observability.RecordError(span, err)
	observability.RecordQueueAdvance(ctx, c.metrics, err)
	return snapshot, err
}

func (c *QueueController) advance(ctx context.Context, req AdvanceRequest) (*entities.QueueSnapshot, error) {
	logger := observability.LoggerFromContext(ctx)

	if req.DoctorID == "" {
		return nil, apperrors.NewValidationError("doctor id is required")
	}
	if !req.Confirmed {
		return nil, ErrConfirmationRequired
	}

	current, ok := c.LastSnapshot(req.DoctorID)
	if !ok {
		fetched, err := c.GetSnapshot(ctx, req.DoctorID)
		if err != nil {
			return nil, err
		}
		current = fetched
	}

	if current.CurrentPatient == nil {
		return nil, ErrNoCurrentPatient
	}
	if req.AppointmentID != current.CurrentPatient.ID {
		return nil, fmt.Errorf("%w: appointment %s is not the current patient (%s)",
			ErrInvalidTransition, req.AppointmentID, current.CurrentPatient.ID)
	}
	appointmentID := current.CurrentPatient.ID

	if !c.beginAdvance(req.DoctorID) {
		return nil, fmt.Errorf("%w: an advance is already in progress for doctor %s", ErrInvalidTransition, req.DoctorID)
	}
	defer c.endAdvance(req.DoctorID)

	if err := c.completer.CompleteAppointment(ctx, appointmentID); err != nil {
		logger.Warn().Err(err).Str("doctor_id", req.DoctorID).Str("appointment_id", appointmentID).Msg("Failed to complete appointment")
		return nil, fmt.Errorf("%w: %w", ErrAdvanceFailed, err)
	}

	logger.Info().Str("doctor_id", req.DoctorID).Str("appointment_id", appointmentID).Msg("Appointment completed")

	next, err := c.GetSnapshot(ctx, req.DoctorID)
	if err != nil {
		// The stored snapshot still shows the completed patient as current.
		c.mu.Lock()
		delete(c.snapshots, req.DoctorID)
		c.mu.Unlock()

		logger.Warn().Err(err).Str("doctor_id", req.DoctorID).Msg("Failed to refresh queue after advance")
		c.publish(ctx, req.DoctorID, appointmentID, "")
		return nil, fmt.Errorf("%w: %w", ErrSnapshotRefreshFailed, err)
	}

	nextID := ""
	if next.CurrentPatient != nil {
		nextID = next.CurrentPatient.ID
	}
	c.publish(ctx, req.DoctorID, appointmentID, nextID)

	return next, nil
}

func (c *QueueController) beginAdvance(doctorID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.advancing[doctorID] {
		return false
	}
	c.advancing[doctorID] = true
	return true
}

func (c *QueueController) endAdvance(doctorID string) {
	c.mu.Lock()
	delete(c.advancing, doctorID)
	c.mu.Unlock()
}

func (c *QueueController) publish(ctx context.Context, doctorID, completedID, nextID string) {
	if c.eventBus == nil {
		return
	}
	payload := map[string]interface{}{"completed_appointment_id": completedID}
	if nextID != "" {
		payload["current_appointment_id"] = nextID
	}
	event := entities.NewClinicEvent(entities.ClinicEventQueueAdvanced, doctorID, completedID, payload)
	if err := c.eventBus.Publish(ctx, providers.GetDoctorChannel(doctorID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("doctor_id", doctorID).Msg("Failed to publish queue event")
	}
}
