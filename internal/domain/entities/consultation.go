package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingRequiredField is returned when chief complaint or diagnosis is blank
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrAlreadySeeded is returned when a transcript is applied to a draft a second time
	ErrAlreadySeeded = errors.New("draft already seeded from a transcript")

	// ErrPrescriptionNotFound is returned when a prescription row id is unknown
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// DraftField names an editable consultation field
type DraftField string

const (
	FieldChiefComplaint          DraftField = "chief_complaint"
	FieldDiagnosis               DraftField = "diagnosis"
	FieldHistoryOfPresentIllness DraftField = "history_of_present_illness"
	FieldPhysicalExamination     DraftField = "physical_examination"
	FieldTreatmentPlan           DraftField = "treatment_plan"
	FieldFollowUpInstructions    DraftField = "follow_up_instructions"
	FieldNextAppointmentDate     DraftField = "next_appointment_date"
	FieldAdditionalNotes         DraftField = "additional_notes"
)

// Prescription is one medication row of a consultation
type Prescription struct {
	ID             int    `json:"id"`
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
	Instructions   string `json:"instructions"`
}

// IsBlank reports whether the row would be dropped on submission
func (p Prescription) IsBlank() bool {
	return strings.TrimSpace(p.MedicationName) == ""
}

// PrescriptionUpdate carries the row fields to change; nil means unchanged
type PrescriptionUpdate struct {
	MedicationName *string `json:"medication_name,omitempty"`
	Dosage         *string `json:"dosage,omitempty"`
	Frequency      *string `json:"frequency,omitempty"`
	Duration       *string `json:"duration,omitempty"`
	Instructions   *string `json:"instructions,omitempty"`
}

// DraftUpdate carries manual edits to a draft; nil means unchanged
type DraftUpdate struct {
	ChiefComplaint          *string `json:"chief_complaint,omitempty"`
	Diagnosis               *string `json:"diagnosis,omitempty"`
	HistoryOfPresentIllness *string `json:"history_of_present_illness,omitempty"`
	PhysicalExamination     *string `json:"physical_examination,omitempty"`
	TreatmentPlan           *string `json:"treatment_plan,omitempty"`
	FollowUpInstructions    *string `json:"follow_up_instructions,omitempty"`
	NextAppointmentDate     *string `json:"next_appointment_date,omitempty"`
	AdditionalNotes         *string `json:"additional_notes,omitempty"`
}

// ConsultationDraft is the doctor's in-progress consultation for one appointment
type ConsultationDraft struct {
	AppointmentID           string         `json:"appointment_id"`
	ChiefComplaint          string         `json:"chief_complaint"`
	Diagnosis               string         `json:"diagnosis"`
	HistoryOfPresentIllness string         `json:"history_of_present_illness"`
	PhysicalExamination     string         `json:"physical_examination"`
	TreatmentPlan           string         `json:"treatment_plan"`
	FollowUpInstructions    string         `json:"follow_up_instructions"`
	NextAppointmentDate     string         `json:"next_appointment_date"`
	AdditionalNotes         string         `json:"additional_notes"`
	Prescriptions           []Prescription `json:"prescriptions"`

	Seeded             bool                `json:"seeded"`
	SeedUploadID       string              `json:"seed_upload_id,omitempty"`
	Edited             map[DraftField]bool `json:"edited,omitempty"`
	NextPrescriptionID int                 `json:"next_prescription_id"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewConsultationDraft creates a blank draft with one empty prescription row
func NewConsultationDraft(appointmentID string, now time.Time) *ConsultationDraft {
	d := &ConsultationDraft{
		AppointmentID:      appointmentID,
		Edited:             make(map[DraftField]bool),
		NextPrescriptionID: 1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	d.AddPrescription()
	return d
}

// SeedFromTranscript fills the draft from a transcription result. It runs once
// per draft and never replaces a field the doctor has already edited.
func (d *ConsultationDraft) SeedFromTranscript(result TranscriptResult) error {
	if d.Seeded {
		return ErrAlreadySeeded
	}

	d.seed(FieldChiefComplaint, &d.ChiefComplaint, result.ChiefComplaint)
	d.seed(FieldHistoryOfPresentIllness, &d.HistoryOfPresentIllness, result.HistoryOfIllness)
	d.seed(FieldPhysicalExamination, &d.PhysicalExamination, result.Vitals.Format())
	d.seed(FieldFollowUpInstructions, &d.FollowUpInstructions, result.FollowUpInstruction)
	d.seed(FieldNextAppointmentDate, &d.NextAppointmentDate, result.NextAppointmentSuggestion)

	if allergies := strings.TrimSpace(result.Allergies); allergies != "" && !d.Edited[FieldAdditionalNotes] {
		note := "Allergies: " + allergies
		if d.AdditionalNotes == "" {
			d.AdditionalNotes = note
		} else {
			d.AdditionalNotes = d.AdditionalNotes + "\n" + note
		}
	}

	d.Seeded = true
	d.SeedUploadID = result.UploadID
	return nil
}

func (d *ConsultationDraft) seed(field DraftField, target *string, value string) {
	if d.Edited[field] || value == "" {
		return
	}
	*target = value
}

// Apply records manual edits and marks the touched fields as edited
func (d *ConsultationDraft) Apply(update DraftUpdate) {
	if d.Edited == nil {
		d.Edited = make(map[DraftField]bool)
	}
	set := func(field DraftField, target *string, value *string) {
		if value == nil {
			return
		}
		*target = *value
		d.Edited[field] = true
	}

	set(FieldChiefComplaint, &d.ChiefComplaint, update.ChiefComplaint)
	set(FieldDiagnosis, &d.Diagnosis, update.Diagnosis)
	set(FieldHistoryOfPresentIllness, &d.HistoryOfPresentIllness, update.HistoryOfPresentIllness)
	set(FieldPhysicalExamination, &d.PhysicalExamination, update.PhysicalExamination)
	set(FieldTreatmentPlan, &d.TreatmentPlan, update.TreatmentPlan)
	set(FieldFollowUpInstructions, &d.FollowUpInstructions, update.FollowUpInstructions)
	set(FieldNextAppointmentDate, &d.NextAppointmentDate, update.NextAppointmentDate)
	set(FieldAdditionalNotes, &d.AdditionalNotes, update.AdditionalNotes)
}

// AddPrescription appends a blank row. Identifiers are never reused.
func (d *ConsultationDraft) AddPrescription() Prescription {
	if d.NextPrescriptionID < 1 {
		d.NextPrescriptionID = 1
	}
	row := Prescription{ID: d.NextPrescriptionID}
	d.NextPrescriptionID++
	d.Prescriptions = append(d.Prescriptions, row)
	return row
}

// RemovePrescription drops the row with the given id. The last remaining row
// is kept so the form always has somewhere to type; it reports whether a row
// was removed.
func (d *ConsultationDraft) RemovePrescription(id int) bool {
	if len(d.Prescriptions) <= 1 {
		return false
	}
	for i, p := range d.Prescriptions {
		if p.ID == id {
			d.Prescriptions = append(d.Prescriptions[:i:i], d.Prescriptions[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePrescription edits one row in place
func (d *ConsultationDraft) UpdatePrescription(id int, update PrescriptionUpdate) (Prescription, error) {
	for i := range d.Prescriptions {
		p := &d.Prescriptions[i]
		if p.ID != id {
			continue
		}
		if update.MedicationName != nil {
			p.MedicationName = *update.MedicationName
		}
		if update.Dosage != nil {
			p.Dosage = *update.Dosage
		}
		if update.Frequency != nil {
			p.Frequency = *update.Frequency
		}
		if update.Duration != nil {
			p.Duration = *update.Duration
		}
		if update.Instructions != nil {
			p.Instructions = *update.Instructions
		}
		return *p, nil
	}
	return Prescription{}, fmt.Errorf("%w: %d", ErrPrescriptionNotFound, id)
}

// ValidateForSubmit checks the required fields
func (d *ConsultationDraft) ValidateForSubmit() error {
	var missing []string
	if strings.TrimSpace(d.ChiefComplaint) == "" {
		missing = append(missing, string(FieldChiefComplaint))
	}
	if strings.TrimSpace(d.Diagnosis) == "" {
		missing = append(missing, string(FieldDiagnosis))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", "))
	}
	return nil
}

// Record packages the draft for submission, dropping rows without a medication name
func (d *ConsultationDraft) Record(now time.Time) ConsultationRecord {
	prescriptions := make([]Prescription, 0, len(d.Prescriptions))
	for _, p := range d.Prescriptions {
		if !p.IsBlank() {
			prescriptions = append(prescriptions, p)
		}
	}

	return ConsultationRecord{
		AppointmentID:           d.AppointmentID,
		ChiefComplaint:          strings.TrimSpace(d.ChiefComplaint),
		Diagnosis:               strings.TrimSpace(d.Diagnosis),
		HistoryOfPresentIllness: d.HistoryOfPresentIllness,
		PhysicalExamination:     d.PhysicalExamination,
		TreatmentPlan:           d.TreatmentPlan,
		FollowUpInstructions:    d.FollowUpInstructions,
		NextAppointmentDate:     d.NextAppointmentDate,
		AdditionalNotes:         d.AdditionalNotes,
		Prescriptions:           prescriptions,
		SubmittedAt:             now,
	}
}

// Clone returns a deep copy of the draft
func (d *ConsultationDraft) Clone() *ConsultationDraft {
	if d == nil {
		return nil
	}
	out := *d
	out.Prescriptions = append([]Prescription(nil), d.Prescriptions...)
	out.Edited = make(map[DraftField]bool, len(d.Edited))
	for k, v := range d.Edited {
		out.Edited[k] = v
	}
	return &out
}

// ConsultationRecord is the payload sent to the backend when a consultation is submitted
type ConsultationRecord struct {
	ID                      string         `json:"id,omitempty"`
	AppointmentID           string         `json:"appointment_id" validate:"required"`
	ChiefComplaint          string         `json:"chief_complaint" validate:"required"`
	Diagnosis               string         `json:"diagnosis" validate:"required"`
	HistoryOfPresentIllness string         `json:"history_of_present_illness,omitempty"`
	PhysicalExamination     string         `json:"physical_examination,omitempty"`
	TreatmentPlan           string         `json:"treatment_plan,omitempty"`
	FollowUpInstructions    string         `json:"follow_up_instructions,omitempty"`
	NextAppointmentDate     string         `json:"next_appointment_date,omitempty"`
	AdditionalNotes         string         `json:"additional_notes,omitempty"`
	Prescriptions           []Prescription `json:"prescriptions"`
	SubmittedAt             time.Time      `json:"submitted_at"`
}
