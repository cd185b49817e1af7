package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctorconsole/internal/application/services"
	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

func TestConsultationWorkflow_UploadAndSeed(t *testing.T) {
	f := newRecordingFixture()
	consultations, _, _ := newConsultationService()
	workflow := services.NewConsultationWorkflow(f.service, consultations)
	ctx := context.Background()

	_, err := consultations.UpdateDraft(ctx, "A101", entities.DraftUpdate{Diagnosis: strPtr("influenza")})
	require.NoError(t, err)

	f.recordAndStop(t, "A101", []byte("audio"))
	f.gateway.On("UploadAudio", mock.Anything, mock.Anything).Return(&entities.TranscriptResult{
		ChiefComplaint:   "fever",
		HistoryOfIllness: "three days",
		Vitals:           entities.Vitals{BloodPressure: "120/80", Pulse: "88", Temperature: "38.5C"},
		Allergies:        "penicillin",
	}, nil)

	outcome, err := workflow.UploadAndSeed(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.Seeded)
	assert.Equal(t, "fever", outcome.Draft.ChiefComplaint)
	assert.Equal(t, "influenza", outcome.Draft.Diagnosis)
	assert.Equal(t, "BP: 120/80, Pulse: 88, Temp: 38.5C", outcome.Draft.PhysicalExamination)
	assert.Equal(t, "Allergies: penicillin", outcome.Draft.AdditionalNotes)
	assert.Equal(t, outcome.Result.UploadID, outcome.Draft.SeedUploadID)

	// A second recording for the same appointment does not reseed.
	f.recordAndStop(t, "A101", []byte("more audio"))
	outcome, err = workflow.UploadAndSeed(ctx)
	require.NoError(t, err)
	assert.False(t, outcome.Seeded)
	assert.Equal(t, "fever", outcome.Draft.ChiefComplaint)
}

func TestConsultationWorkflow_SeedsSessionAppointment(t *testing.T) {
	f := newRecordingFixture()
	consultations, _, _ := newConsultationService()
	workflow := services.NewConsultationWorkflow(f.service, consultations)
	ctx := context.Background()

	f.recordAndStop(t, "A101", []byte("audio"))
	f.gateway.On("UploadAudio", mock.Anything, mock.Anything).
		Return(&entities.TranscriptResult{AppointmentID: "B999", ChiefComplaint: "fever"}, nil)

	outcome, err := workflow.UploadAndSeed(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.Seeded)

	draft, err := consultations.GetDraft(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, "fever", draft.ChiefComplaint)

	_, err = consultations.GetDraft(ctx, "B999")
	assert.ErrorIs(t, err, services.ErrDraftNotFound)
}

func TestConsultationWorkflow_UploadFailure(t *testing.T) {
	f := newRecordingFixture()
	consultations, _, _ := newConsultationService()
	workflow := services.NewConsultationWorkflow(f.service, consultations)

	_, err := workflow.UploadAndSeed(context.Background())
	assert.ErrorIs(t, err, services.ErrNoPayload)

	_, err = consultations.GetDraft(context.Background(), "A101")
	assert.ErrorIs(t, err, services.ErrDraftNotFound)
}
