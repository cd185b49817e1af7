package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
)

// DefaultMaxBytes bounds a browser-fed recording held in memory
const DefaultMaxBytes = 256 << 20

// BufferDevice collects audio that the browser captures with MediaRecorder
// and posts to the console in chunks. Only one handle can be held at a time.
type BufferDevice struct {
	contentType string
	maxBytes    int

	mu   sync.Mutex
	held bool
}

// NewBufferDevice creates a chunk-fed capture device
func NewBufferDevice(contentType string, maxBytes int) *BufferDevice {
	if contentType == "" {
		contentType = "audio/webm"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &BufferDevice{contentType: contentType, maxBytes: maxBytes}
}

// Acquire hands out the device
func (d *BufferDevice) Acquire(ctx context.Context) (providers.AudioHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held {
		return nil, fmt.Errorf("%w: buffer already in use", providers.ErrDeviceDenied)
	}
	d.held = true
	return &bufferHandle{device: d, startedAt: time.Now()}, nil
}

func (d *BufferDevice) release() {
	d.mu.Lock()
	d.held = false
	d.mu.Unlock()
}

type bufferHandle struct {
	device    *BufferDevice
	startedAt time.Time

	mu        sync.Mutex
	buf       bytes.Buffer
	finalized bool
	released  bool
}

// WriteChunk appends captured audio
func (h *bufferHandle) WriteChunk(chunk []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.finalized || h.released {
		return fmt.Errorf("recording is no longer capturing")
	}
	if h.buf.Len()+len(chunk) > h.device.maxBytes {
		return fmt.Errorf("recording exceeds %d bytes", h.device.maxBytes)
	}
	h.buf.Write(chunk)
	return nil
}

// Finalize returns the collected audio as one payload
func (h *bufferHandle) Finalize(ctx context.Context) (entities.AudioPayload, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return entities.AudioPayload{}, fmt.Errorf("recording handle already released")
	}
	h.finalized = true
	return entities.AudioPayload{
		Data:        bytes.Clone(h.buf.Bytes()),
		ContentType: h.device.contentType,
		CapturedAt:  h.startedAt,
	}, nil
}

// Release frees the device; safe to call more than once
func (h *bufferHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true
	h.buf.Reset()
	h.device.release()
	return nil
}
