package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

// RecordingService drives the recording lifecycle of the workstation's slot:
// start, stop, upload for transcription, discard
type RecordingService struct {
	slot     *RecordingSlot
	device   providers.AudioDevice
	gateway  providers.TranscriptionGateway
	eventBus providers.EventBus
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewRecordingService creates a new recording service
func NewRecordingService(
	slot *RecordingSlot,
	device providers.AudioDevice,
	gateway providers.TranscriptionGateway,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *RecordingService {
	return &RecordingService{
		slot:     slot,
		device:   device,
		gateway:  gateway,
		eventBus: eventBus,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Status returns the UI view of the slot
func (s *RecordingService) Status() entities.RecordingStatus {
	return entities.StatusOf(s.slot.State())
}

// Start acquires the capture device and binds a new session to the appointment
func (s *RecordingService) Start(ctx context.Context, appointmentID string) (entities.RecordingStatus, error) {
	logger := observability.LoggerFromContext(ctx)

	if appointmentID == "" {
		return s.Status(), apperrors.NewValidationError("appointment id is required")
	}

	state, err := s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		switch state.(type) {
		case entities.RecordingIdle, entities.RecordingSucceeded:
		default:
			return nil, nil, fmt.Errorf("%w: appointment %s holds the recorder (%s)",
				ErrSessionBusy, entities.AppointmentIDOf(state), state.Phase())
		}

		acquired, err := s.device.Acquire(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		return entities.RecordingActive{AppointmentID: appointmentID, StartedAt: s.now()}, acquired, nil
	})
	if err != nil {
		logger.Warn().Err(err).Str("appointment_id", appointmentID).Msg("Failed to start recording")
		return entities.StatusOf(state), err
	}

	logger.Info().Str("appointment_id", appointmentID).Msg("Recording started")
	observability.RecordRecordingStarted(ctx, s.metrics)
	return s.publish(ctx, state), nil
}

// WriteAudio feeds a chunk of captured audio to the active session. Only
// devices whose handles accept external chunks support it.
func (s *RecordingService) WriteAudio(ctx context.Context, chunk []byte) error {
	_, err := s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		if _, ok := state.(entities.RecordingActive); !ok {
			return nil, nil, fmt.Errorf("%w: cannot write audio while %s", ErrInvalidTransition, state.Phase())
		}
		writer, ok := handle.(providers.ChunkWriter)
		if !ok {
			return nil, nil, apperrors.NewValidationError("the configured audio device captures locally and does not accept uploaded chunks")
		}
		if err := writer.WriteChunk(chunk); err != nil {
			return nil, nil, fmt.Errorf("failed to write audio chunk: %w", err)
		}
		return state, handle, nil
	})
	return err
}

// Stop finalizes the capture and releases the device. The device is released
// whatever Finalize returns.
func (s *RecordingService) Stop(ctx context.Context) (entities.RecordingStatus, error) {
	logger := observability.LoggerFromContext(ctx)

	var finalizeErr error
	state, err := s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		active, ok := state.(entities.RecordingActive)
		if !ok {
			return nil, nil, fmt.Errorf("%w: cannot stop while %s", ErrInvalidTransition, state.Phase())
		}

		var payload entities.AudioPayload
		if handle != nil {
			payload, finalizeErr = handle.Finalize(ctx)
			if releaseErr := handle.Release(); releaseErr != nil {
				logger.Warn().Err(releaseErr).Str("appointment_id", active.AppointmentID).Msg("Failed to release audio device")
			}
		}
		if finalizeErr != nil {
			return entities.RecordingIdle{}, nil, nil
		}
		if payload.CapturedAt.IsZero() {
			payload.CapturedAt = s.now()
		}
		return entities.RecordingStopped{AppointmentID: active.AppointmentID, Payload: payload}, nil, nil
	})
	if err != nil {
		return entities.StatusOf(state), err
	}

	status := s.publish(ctx, state)
	if finalizeErr != nil {
		logger.Error().Err(finalizeErr).Msg("Recording could not be finalized, session discarded")
		return status, fmt.Errorf("failed to finalize recording: %w", finalizeErr)
	}

	logger.Info().Str("appointment_id", status.AppointmentID).Int("bytes", status.PayloadBytes).Msg("Recording stopped")
	return status, nil
}

// Upload sends the stopped recording to the transcription gateway. A failed
// upload keeps the payload so a later Upload can retry it; nothing retries
// automatically.
func (s *RecordingService) Upload(ctx context.Context) (*entities.TranscriptResult, error) {
	ctx, span := observability.StartSpan(ctx, "RecordingService.Upload")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	var upload providers.AudioUpload
	state, err := s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		var appointmentID string
		var payload entities.AudioPayload
		switch st := state.(type) {
		case entities.RecordingStopped:
			appointmentID, payload = st.AppointmentID, st.Payload
		case entities.RecordingFailed:
			appointmentID, payload = st.AppointmentID, st.Payload
		default:
			return nil, nil, fmt.Errorf("%w: session is %s", ErrNoPayload, state.Phase())
		}
		if payload.Size() == 0 {
			return nil, nil, fmt.Errorf("%w: recording for appointment %s is empty", ErrNoPayload, appointmentID)
		}

		upload = providers.AudioUpload{
			UploadID:      uuid.New().String(),
			AppointmentID: appointmentID,
			CapturedAt:    payload.CapturedAt,
			Payload:       payload,
		}
		return entities.RecordingUploading{
			AppointmentID: appointmentID,
			Payload:       payload,
			UploadID:      upload.UploadID,
			StartedAt:     s.now(),
		}, handle, nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, state)

	observability.SetSpanAttributes(span,
		attribute.String("appointment.id", upload.AppointmentID),
		attribute.String("upload.id", upload.UploadID),
		attribute.Int("upload.bytes", upload.Payload.Size()),
	)
	logger.Info().Str("appointment_id", upload.AppointmentID).Str("upload_id", upload.UploadID).Msg("Uploading recording")

	// The upload outlives the request that started it so the slot never stays in uploading.
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	result, uploadErr := s.gateway.UploadAudio(ctx, upload)
	if uploadErr == nil && result == nil {
		uploadErr = apperrors.NewExternalError("transcription gateway returned no result", nil)
	}
	observability.RecordUpload(ctx, s.metrics, upload.Payload.Size(), time.Since(started), uploadErr)

	if uploadErr == nil {
		// The session's appointment is authoritative for the result.
		if result.AppointmentID != "" && result.AppointmentID != upload.AppointmentID {
			logger.Warn().
				Str("appointment_id", upload.AppointmentID).
				Str("gateway_appointment_id", result.AppointmentID).
				Msg("Transcription result names a different appointment")
		}
		result.AppointmentID = upload.AppointmentID
		if result.UploadID == "" {
			result.UploadID = upload.UploadID
		}
		if result.ReceivedAt.IsZero() {
			result.ReceivedAt = s.now()
		}
	}

	state, _ = s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		if uploadErr != nil {
			return entities.RecordingFailed{
				AppointmentID: upload.AppointmentID,
				Payload:       upload.Payload,
				Err:           uploadErr,
				FailedAt:      s.now(),
			}, handle, nil
		}
		return entities.RecordingSucceeded{AppointmentID: upload.AppointmentID, Result: *result}, handle, nil
	})
	s.publish(ctx, state)

	if uploadErr != nil {
		observability.RecordError(span, uploadErr)
		logger.Error().Err(uploadErr).Str("appointment_id", upload.AppointmentID).Str("upload_id", upload.UploadID).Msg("Transcription upload failed")
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, uploadErr)
	}

	logger.Info().Str("appointment_id", upload.AppointmentID).Str("upload_id", upload.UploadID).Msg("Transcription received")
	out := *result
	return &out, nil
}

// Discard abandons the current session and empties the slot. An upload in
// flight cannot be discarded.
func (s *RecordingService) Discard(ctx context.Context) (entities.RecordingStatus, error) {
	logger := observability.LoggerFromContext(ctx)

	var previous string
	state, err := s.slot.transition(func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error) {
		if _, ok := state.(entities.RecordingUploading); ok {
			return nil, nil, fmt.Errorf("%w: cannot discard while uploading", ErrInvalidTransition)
		}
		previous = entities.AppointmentIDOf(state)
		if handle != nil {
			if err := handle.Release(); err != nil {
				logger.Warn().Err(err).Str("appointment_id", previous).Msg("Failed to release audio device")
			}
		}
		return entities.RecordingIdle{}, nil, nil
	})
	if err != nil {
		return entities.StatusOf(state), err
	}

	if previous != "" {
		logger.Info().Str("appointment_id", previous).Msg("Recording discarded")
	}
	return s.publish(ctx, state), nil
}

func (s *RecordingService) publish(ctx context.Context, state entities.RecordingState) entities.RecordingStatus {
	status := entities.StatusOf(state)
	if s.eventBus == nil {
		return status
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelRecording, entities.NewRecordingStatusEvent(status)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to publish recording status")
	}
	return status
}

// IsPrecondition reports whether err is a usage error rather than a failure
// of the device or the network
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNoCurrentPatient) ||
		errors.Is(err, ErrSessionBusy) ||
		errors.Is(err, ErrNoPayload)
}
