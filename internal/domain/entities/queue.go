package entities

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidSnapshot is returned when backend queue data breaks the queue invariants
var ErrInvalidSnapshot = errors.New("invalid queue snapshot")

// QueueSnapshot is the current/waiting partition of one doctor's appointments at one instant
type QueueSnapshot struct {
	DoctorID       string        `json:"doctor_id"`
	CurrentPatient *Appointment  `json:"current_patient"`
	Waiting        []Appointment `json:"waiting"`
	FetchedAt      time.Time     `json:"fetched_at"`
}

// Normalize orders the waiting list by queue position, ties broken by scheduled time
func (s *QueueSnapshot) Normalize() {
	sort.SliceStable(s.Waiting, func(i, j int) bool {
		pi, pj := position(s.Waiting[i]), position(s.Waiting[j])
		if pi != pj {
			return pi < pj
		}
		return s.Waiting[i].ScheduledAt().Before(s.Waiting[j].ScheduledAt())
	})
}

func position(a Appointment) int {
	if a.QueuePosition == nil {
		return 0
	}
	return *a.QueuePosition
}

// Validate checks the queue invariants. The snapshot must be normalized first.
func (s *QueueSnapshot) Validate() error {
	if s.DoctorID == "" {
		return fmt.Errorf("%w: doctor id is required", ErrInvalidSnapshot)
	}

	if c := s.CurrentPatient; c != nil {
		if c.Status != AppointmentStatusInConsultation {
			return fmt.Errorf("%w: current patient %s has status %s", ErrInvalidSnapshot, c.ID, c.Status)
		}
		if c.DoctorID != s.DoctorID {
			return fmt.Errorf("%w: current patient %s belongs to doctor %s", ErrInvalidSnapshot, c.ID, c.DoctorID)
		}
	}

	seen := make(map[string]struct{}, len(s.Waiting))
	for i, a := range s.Waiting {
		if s.CurrentPatient != nil && a.ID == s.CurrentPatient.ID {
			return fmt.Errorf("%w: current patient %s is also waiting", ErrInvalidSnapshot, a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: appointment %s listed twice", ErrInvalidSnapshot, a.ID)
		}
		seen[a.ID] = struct{}{}

		if a.DoctorID != s.DoctorID {
			return fmt.Errorf("%w: waiting appointment %s belongs to doctor %s", ErrInvalidSnapshot, a.ID, a.DoctorID)
		}
		if a.Status != AppointmentStatusWaiting {
			return fmt.Errorf("%w: waiting appointment %s has status %s", ErrInvalidSnapshot, a.ID, a.Status)
		}
		if a.QueuePosition == nil || *a.QueuePosition < 1 {
			return fmt.Errorf("%w: waiting appointment %s has no queue position", ErrInvalidSnapshot, a.ID)
		}
		if i > 0 && *a.QueuePosition != *s.Waiting[i-1].QueuePosition+1 {
			return fmt.Errorf("%w: queue positions are not unique and contiguous at %s", ErrInvalidSnapshot, a.ID)
		}
	}

	return nil
}

// IsEmpty reports whether nobody is in consultation or waiting
func (s *QueueSnapshot) IsEmpty() bool {
	return s.CurrentPatient == nil && len(s.Waiting) == 0
}

// Clone returns a deep copy so callers cannot mutate the authoritative snapshot
func (s *QueueSnapshot) Clone() *QueueSnapshot {
	if s == nil {
		return nil
	}
	out := &QueueSnapshot{
		DoctorID:       s.DoctorID,
		CurrentPatient: s.CurrentPatient.Clone(),
		FetchedAt:      s.FetchedAt,
		Waiting:        make([]Appointment, 0, len(s.Waiting)),
	}
	for i := range s.Waiting {
		out.Waiting = append(out.Waiting, *s.Waiting[i].Clone())
	}
	return out
}
