package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled      AppointmentStatus = "scheduled"
	AppointmentStatusWaiting        AppointmentStatus = "waiting"
	AppointmentStatusInConsultation AppointmentStatus = "in-consultation"
	AppointmentStatusCompleted      AppointmentStatus = "completed"
	AppointmentStatusNoShow         AppointmentStatus = "no-show"
	AppointmentStatusCancelled      AppointmentStatus = "cancelled"
)

// IsFinal reports whether the appointment can no longer change.
func (s AppointmentStatus) IsFinal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusNoShow, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment represents a booked visit as seen by the doctor console
type Appointment struct {
	ID            string            `json:"id" db:"id" validate:"required"`
	PatientName   string            `json:"patient_name" db:"patient_name" validate:"required"`
	DoctorID      string            `json:"doctor_id" db:"doctor_id" validate:"required"`
	ScheduledTime string            `json:"scheduled_time" db:"scheduled_time"`
	Date          string            `json:"date" db:"date"`
	Status        AppointmentStatus `json:"status" db:"status" validate:"required,oneof=scheduled waiting in-consultation completed no-show cancelled"`
	QueuePosition *int              `json:"queue_position,omitempty" db:"queue_position" validate:"omitempty,gte=1"`
}

// ScheduledAt combines Date and ScheduledTime into a comparable instant.
// Unparseable values sort as the zero time.
func (a *Appointment) ScheduledAt() time.Time {
	if t, err := time.Parse("2006-01-02 15:04", a.Date+" "+a.ScheduledTime); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", a.Date); err == nil {
		return t
	}
	return time.Time{}
}

// Clone returns a deep copy of the appointment
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	out := *a
	if a.QueuePosition != nil {
		pos := *a.QueuePosition
		out.QueuePosition = &pos
	}
	return &out
}
