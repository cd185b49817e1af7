package services

import "errors"

// Precondition violations. Callers are expected to prevent these but they
// are never ignored when they happen.
var (
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNoCurrentPatient     = errors.New("no patient is in consultation")
	ErrSessionBusy          = errors.New("a recording session is already active")
	ErrNoPayload            = errors.New("no recorded audio to upload")
	ErrConfirmationRequired = errors.New("advancing the queue requires confirmation")
	ErrDraftNotFound        = errors.New("consultation draft not found")
)

// External or transient failures. State is preserved so the caller can retry.
var (
	ErrDeviceUnavailable     = errors.New("audio capture device unavailable")
	ErrAdvanceFailed         = errors.New("failed to complete appointment")
	ErrSnapshotRefreshFailed = errors.New("appointment completed but the queue could not be refreshed")
	ErrUploadFailed          = errors.New("transcription upload failed")
	ErrSubmitFailed          = errors.New("consultation submission failed")
)
