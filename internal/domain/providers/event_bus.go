package providers

import (
	"context"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to console events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ClinicEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ClinicEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event streams
const (
	// EventChannelRecording carries recording slot status changes
	EventChannelRecording = "console:recording"

	// EventChannelConsultation carries consultation submissions
	EventChannelConsultation = "console:consultation"

	// EventChannelDoctorPrefix is the prefix for doctor-specific queue channels
	EventChannelDoctorPrefix = "console:doctor:"
)

// GetDoctorChannel returns the channel name for a specific doctor
func GetDoctorChannel(doctorID string) string {
	return EventChannelDoctorPrefix + doctorID
}
