package services_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
)

// Mocks

type MockClinicBackend struct {
	mock.Mock
}

func (m *MockClinicBackend) FetchQueueSnapshot(ctx context.Context, doctorID string) (*entities.QueueSnapshot, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.QueueSnapshot), args.Error(1)
}

func (m *MockClinicBackend) CompleteAppointment(ctx context.Context, appointmentID string) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

func (m *MockClinicBackend) UpdateConsultation(ctx context.Context, appointmentID string, record *entities.ConsultationRecord) error {
	args := m.Called(ctx, appointmentID, record)
	return args.Error(0)
}

type MockAudioDevice struct {
	mock.Mock
}

func (m *MockAudioDevice) Acquire(ctx context.Context) (providers.AudioHandle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(providers.AudioHandle), args.Error(1)
}

type MockAudioHandle struct {
	mock.Mock
}

func (m *MockAudioHandle) Finalize(ctx context.Context) (entities.AudioPayload, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.AudioPayload), args.Error(1)
}

func (m *MockAudioHandle) Release() error {
	args := m.Called()
	return args.Error(0)
}

type MockTranscriptionGateway struct {
	mock.Mock
}

func (m *MockTranscriptionGateway) UploadAudio(ctx context.Context, upload providers.AudioUpload) (*entities.TranscriptResult, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TranscriptResult), args.Error(1)
}

// RecordingEventBus captures published events
type RecordingEventBus struct {
	mu        sync.Mutex
	published map[string][]*entities.ClinicEvent
}

func NewRecordingEventBus() *RecordingEventBus {
	return &RecordingEventBus{published: make(map[string][]*entities.ClinicEvent)}
}

func (b *RecordingEventBus) Publish(ctx context.Context, channel string, event *entities.ClinicEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], event)
	return nil
}

func (b *RecordingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ClinicEvent, error) {
	return make(chan *entities.ClinicEvent), nil
}

func (b *RecordingEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *RecordingEventBus) Close() error { return nil }

func (b *RecordingEventBus) Events(channel string) []*entities.ClinicEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.ClinicEvent(nil), b.published[channel]...)
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }
