package providers

import (
	"context"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// QueueSource reads the doctor's queue as the clinic backend currently sees it
type QueueSource interface {
	// FetchQueueSnapshot returns the current patient and the waiting list for a doctor
	FetchQueueSnapshot(ctx context.Context, doctorID string) (*entities.QueueSnapshot, error)
}

// AppointmentCompleter closes an appointment on the clinic backend
type AppointmentCompleter interface {
	// CompleteAppointment marks the appointment completed; the backend decides who is next
	CompleteAppointment(ctx context.Context, appointmentID string) error
}

// ConsultationWriter stores a submitted consultation against its appointment
type ConsultationWriter interface {
	// UpdateConsultation sends the consultation record; a nil error is the backend acknowledgement
	UpdateConsultation(ctx context.Context, appointmentID string, record *entities.ConsultationRecord) error
}

// ClinicBackend is the full set of clinic backend contracts used by the console
type ClinicBackend interface {
	QueueSource
	AppointmentCompleter
	ConsultationWriter
}
