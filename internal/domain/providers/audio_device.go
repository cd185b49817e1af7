package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// ErrDeviceDenied is returned by AudioDevice implementations when the host refuses capture
var ErrDeviceDenied = errors.New("audio capture device unavailable")

// AudioDevice is the host capability that grants exclusive microphone access
type AudioDevice interface {
	// Acquire opens the input device and starts capturing
	Acquire(ctx context.Context) (AudioHandle, error)
}

// AudioHandle is a held capture device. Release must be called on every path,
// including after Finalize, and must be safe to call more than once.
type AudioHandle interface {
	// Finalize stops capturing and returns everything captured so far
	Finalize(ctx context.Context) (entities.AudioPayload, error)

	// Release frees the device
	Release() error
}

// ChunkWriter is implemented by handles that are fed audio from outside the
// process, e.g. browser MediaRecorder chunks
type ChunkWriter interface {
	WriteChunk(chunk []byte) error
}
