package services

import (
	"sync"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
)

// RecordingSlot is the one place a recording session can live. There is a
// single slot per process; it is created at startup and handed to the
// RecordingService that owns it.
type RecordingSlot struct {
	mu     sync.Mutex
	state  entities.RecordingState
	handle providers.AudioHandle
}

// NewRecordingSlot creates an empty slot
func NewRecordingSlot() *RecordingSlot {
	return &RecordingSlot{state: entities.RecordingIdle{}}
}

// State returns the current session state
func (s *RecordingSlot) State() entities.RecordingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition runs fn with the slot locked. fn receives the current state and
// device handle and returns the replacements.
func (s *RecordingSlot) transition(fn func(state entities.RecordingState, handle providers.AudioHandle) (entities.RecordingState, providers.AudioHandle, error)) (entities.RecordingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, handle, err := fn(s.state, s.handle)
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.handle = handle
	return next, nil
}
