package entities

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func str(s string) *string { return &s }

func newDraft() *ConsultationDraft {
	return NewConsultationDraft("A101", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
}

func TestNewConsultationDraft_HasOneBlankRow(t *testing.T) {
	d := newDraft()
	if len(d.Prescriptions) != 1 || !d.Prescriptions[0].IsBlank() {
		t.Fatalf("expected one blank row, got %+v", d.Prescriptions)
	}
}

func TestConsultationDraft_ValidateForSubmit(t *testing.T) {
	tests := []struct {
		complaint, diagnosis string
		valid                bool
	}{
		{"", "x", false},
		{"x", "  ", false},
		{"x", "y", true},
		{"\t", "", false},
	}
	for _, tt := range tests {
		d := newDraft()
		d.Apply(DraftUpdate{ChiefComplaint: str(tt.complaint), Diagnosis: str(tt.diagnosis)})
		err := d.ValidateForSubmit()
		if tt.valid && err != nil {
			t.Errorf("{%q, %q}: expected valid, got %v", tt.complaint, tt.diagnosis, err)
		}
		if !tt.valid && !errors.Is(err, ErrMissingRequiredField) {
			t.Errorf("{%q, %q}: expected ErrMissingRequiredField, got %v", tt.complaint, tt.diagnosis, err)
		}
	}
}

func TestConsultationDraft_ValidateForSubmit_NamesMissingFields(t *testing.T) {
	err := newDraft().ValidateForSubmit()
	if err == nil || !strings.Contains(err.Error(), "chief_complaint") || !strings.Contains(err.Error(), "diagnosis") {
		t.Errorf("expected both fields named, got %v", err)
	}
}

func TestConsultationDraft_SeedFromTranscript(t *testing.T) {
	result := TranscriptResult{
		UploadID:                  "up-1",
		ChiefComplaint:            "fever",
		HistoryOfIllness:          "three days",
		Vitals:                    Vitals{BloodPressure: "120/80", Temperature: "38.5C"},
		Allergies:                 "penicillin",
		FollowUpInstruction:       "rest",
		NextAppointmentSuggestion: "2026-03-09",
	}

	d := newDraft()
	if err := d.SeedFromTranscript(result); err != nil {
		t.Fatal(err)
	}

	if d.ChiefComplaint != "fever" || d.HistoryOfPresentIllness != "three days" {
		t.Errorf("text fields not seeded: %+v", d)
	}
	if d.PhysicalExamination != "BP: 120/80, Temp: 38.5C" {
		t.Errorf("unexpected vitals line %q", d.PhysicalExamination)
	}
	if d.AdditionalNotes != "Allergies: penicillin" {
		t.Errorf("unexpected notes %q", d.AdditionalNotes)
	}
	if d.FollowUpInstructions != "rest" || d.NextAppointmentDate != "2026-03-09" {
		t.Errorf("follow-up not seeded: %+v", d)
	}
	if d.Diagnosis != "" {
		t.Errorf("diagnosis must be left to the doctor, got %q", d.Diagnosis)
	}
	if !d.Seeded || d.SeedUploadID != "up-1" {
		t.Errorf("seed bookkeeping missing: %+v", d)
	}
}

func TestConsultationDraft_SeedKeepsEdits(t *testing.T) {
	d := newDraft()
	d.Apply(DraftUpdate{ChiefComplaint: str("headache"), AdditionalNotes: str("walk-in")})

	if err := d.SeedFromTranscript(TranscriptResult{ChiefComplaint: "fever", Allergies: "latex"}); err != nil {
		t.Fatal(err)
	}
	if d.ChiefComplaint != "headache" {
		t.Errorf("edited complaint overwritten: %q", d.ChiefComplaint)
	}
	if d.AdditionalNotes != "walk-in" {
		t.Errorf("edited notes overwritten: %q", d.AdditionalNotes)
	}
}

func TestConsultationDraft_SeedThenEditThenSeedAgain(t *testing.T) {
	d := newDraft()
	if err := d.SeedFromTranscript(TranscriptResult{ChiefComplaint: "fever"}); err != nil {
		t.Fatal(err)
	}
	d.Apply(DraftUpdate{ChiefComplaint: str("fever and chills")})

	err := d.SeedFromTranscript(TranscriptResult{ChiefComplaint: "cough"})
	if !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("expected ErrAlreadySeeded, got %v", err)
	}
	if d.ChiefComplaint != "fever and chills" {
		t.Errorf("edit clobbered: %q", d.ChiefComplaint)
	}
}

func TestConsultationDraft_RemovePrescription_ByIdentity(t *testing.T) {
	d := newDraft()
	d.AddPrescription()
	d.AddPrescription()
	ids := []int{d.Prescriptions[0].ID, d.Prescriptions[1].ID, d.Prescriptions[2].ID}

	if _, err := d.UpdatePrescription(ids[2], PrescriptionUpdate{MedicationName: str("Amoxicillin"), Dosage: str("500mg")}); err != nil {
		t.Fatal(err)
	}
	if !d.RemovePrescription(ids[1]) {
		t.Fatal("expected row to be removed")
	}

	if len(d.Prescriptions) != 2 || d.Prescriptions[0].ID != ids[0] || d.Prescriptions[1].ID != ids[2] {
		t.Fatalf("unexpected rows %+v", d.Prescriptions)
	}
	if d.Prescriptions[1].MedicationName != "Amoxicillin" || d.Prescriptions[1].Dosage != "500mg" {
		t.Errorf("surviving row lost its fields: %+v", d.Prescriptions[1])
	}

	added := d.AddPrescription()
	for _, id := range ids {
		if added.ID == id {
			t.Errorf("identifier %d reused", id)
		}
	}
}

func TestConsultationDraft_RemovePrescription_KeepsLastRow(t *testing.T) {
	d := newDraft()
	if d.RemovePrescription(d.Prescriptions[0].ID) {
		t.Error("last row must not be removed")
	}
	if len(d.Prescriptions) != 1 {
		t.Errorf("expected 1 row, got %d", len(d.Prescriptions))
	}
}

func TestConsultationDraft_Record_DropsBlankRows(t *testing.T) {
	d := newDraft()
	d.Apply(DraftUpdate{ChiefComplaint: str(" fever "), Diagnosis: str("flu")})
	row := d.AddPrescription()
	if _, err := d.UpdatePrescription(row.ID, PrescriptionUpdate{MedicationName: str("Paracetamol")}); err != nil {
		t.Fatal(err)
	}
	d.AddPrescription()
	if _, err := d.UpdatePrescription(d.Prescriptions[2].ID, PrescriptionUpdate{MedicationName: str("   ")}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rec := d.Record(now)
	if len(rec.Prescriptions) != 1 || rec.Prescriptions[0].MedicationName != "Paracetamol" {
		t.Errorf("unexpected prescriptions %+v", rec.Prescriptions)
	}
	if rec.ChiefComplaint != "fever" || !rec.SubmittedAt.Equal(now) {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(d.Prescriptions) != 3 {
		t.Error("Record must not modify the draft")
	}
}

func TestConsultationDraft_Clone_IsDeep(t *testing.T) {
	d := newDraft()
	d.Apply(DraftUpdate{ChiefComplaint: str("fever")})
	c := d.Clone()
	c.Prescriptions[0].MedicationName = "changed"
	c.Edited[FieldDiagnosis] = true

	if d.Prescriptions[0].MedicationName != "" || d.Edited[FieldDiagnosis] {
		t.Error("clone shares memory with the original")
	}
}
