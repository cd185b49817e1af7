package entities

import (
	"errors"
	"testing"
)

func pos(i int) *int { return &i }

func waiting(id string, position *int, scheduled string) Appointment {
	return Appointment{
		ID:            id,
		DoctorID:      "doc-1",
		Date:          "2026-03-02",
		ScheduledTime: scheduled,
		Status:        AppointmentStatusWaiting,
		QueuePosition: position,
	}
}

func TestQueueSnapshot_Normalize_OrdersByPositionThenTime(t *testing.T) {
	s := &QueueSnapshot{
		DoctorID: "doc-1",
		Waiting: []Appointment{
			waiting("A3", pos(3), "09:00"),
			waiting("A1", pos(1), "11:00"),
			waiting("A2", pos(2), "08:00"),
		},
	}
	s.Normalize()

	for i, want := range []string{"A1", "A2", "A3"} {
		if s.Waiting[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, s.Waiting[i].ID)
		}
	}
	if err := s.Validate(); err != nil {
		t.Errorf("expected valid snapshot, got %v", err)
	}
}

func TestQueueSnapshot_Validate(t *testing.T) {
	current := &Appointment{ID: "A0", DoctorID: "doc-1", Status: AppointmentStatusInConsultation}

	tests := []struct {
		name    string
		current *Appointment
		waiting []Appointment
		valid   bool
	}{
		{"empty", nil, nil, true},
		{"current only", current, nil, true},
		{"current and waiting", current, []Appointment{waiting("A1", pos(1), "09:00"), waiting("A2", pos(2), "09:30")}, true},
		{"current also waiting", current, []Appointment{waiting("A0", pos(1), "09:00")}, false},
		{"duplicate waiting", nil, []Appointment{waiting("A1", pos(1), "09:00"), waiting("A1", pos(2), "09:00")}, false},
		{"gap in positions", nil, []Appointment{waiting("A1", pos(1), "09:00"), waiting("A2", pos(3), "09:30")}, false},
		{"repeated position", nil, []Appointment{waiting("A1", pos(1), "09:00"), waiting("A2", pos(1), "09:30")}, false},
		{"missing position", nil, []Appointment{waiting("A1", nil, "09:00")}, false},
		{"current not in consultation", &Appointment{ID: "A0", DoctorID: "doc-1", Status: AppointmentStatusWaiting}, nil, false},
		{"other doctor's patient", &Appointment{ID: "A0", DoctorID: "doc-2", Status: AppointmentStatusInConsultation}, nil, false},
		{"completed appointment waiting", nil, []Appointment{{ID: "A1", DoctorID: "doc-1", Status: AppointmentStatusCompleted, QueuePosition: pos(1)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &QueueSnapshot{DoctorID: "doc-1", CurrentPatient: tt.current, Waiting: tt.waiting}
			s.Normalize()
			err := s.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestQueueSnapshot_Clone_IsDeep(t *testing.T) {
	s := &QueueSnapshot{
		DoctorID:       "doc-1",
		CurrentPatient: &Appointment{ID: "A0", DoctorID: "doc-1", Status: AppointmentStatusInConsultation},
		Waiting:        []Appointment{waiting("A1", pos(1), "09:00")},
	}
	c := s.Clone()
	c.CurrentPatient.ID = "changed"
	*c.Waiting[0].QueuePosition = 7

	if s.CurrentPatient.ID != "A0" || *s.Waiting[0].QueuePosition != 1 {
		t.Error("clone shares memory with the original")
	}
}
