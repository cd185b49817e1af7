package clinicapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL+"/", WithToken("secret"))
	c.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestHTTPClient_FetchQueueSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/doctors/doc-1/queue", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"current_patient": {"id": "A101", "patient_name": "Ada", "doctor_id": "doc-1", "date": "2026-03-02", "scheduled_time": "09:00", "status": "in-consultation"},
			"waiting": [
				{"id": "A102", "patient_name": "Bo", "doctor_id": "doc-1", "date": "2026-03-02", "scheduled_time": "09:30", "status": "waiting", "queue_position": 1}
			]
		}`)
	})

	snapshot, err := c.FetchQueueSnapshot(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", snapshot.DoctorID)
	require.NotNil(t, snapshot.CurrentPatient)
	assert.Equal(t, "A101", snapshot.CurrentPatient.ID)
	require.Len(t, snapshot.Waiting, 1)
	assert.Equal(t, 1, *snapshot.Waiting[0].QueuePosition)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), snapshot.FetchedAt)
}

func TestHTTPClient_FetchQueueSnapshot_RejectsMalformedAppointments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"current_patient": null, "waiting": [{"id": "A102", "doctor_id": "doc-1", "status": "asleep"}]}`)
	})

	_, err := c.FetchQueueSnapshot(context.Background(), "doc-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestHTTPClient_CompleteAppointment(t *testing.T) {
	t.Run("acknowledged", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/appointments/A101/complete", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, c.CompleteAppointment(context.Background(), "A101"))
	})

	t.Run("maps status codes", func(t *testing.T) {
		tests := []struct {
			status int
			want   apperrors.ErrorType
		}{
			{http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized},
			{http.StatusNotFound, apperrors.ErrorTypeNotFound},
			{http.StatusConflict, apperrors.ErrorTypeConflict},
			{http.StatusUnprocessableEntity, apperrors.ErrorTypeValidation},
			{http.StatusBadGateway, apperrors.ErrorTypeExternal},
		}
		for _, tt := range tests {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error": "nope"}`)
			})

			err := c.CompleteAppointment(context.Background(), "A101")
			assert.Equal(t, tt.want, apperrors.TypeOf(err), "status %d", tt.status)
			assert.Contains(t, err.Error(), "nope")
		}
	})
}

func TestHTTPClient_UpdateConsultation(t *testing.T) {
	var got entities.ConsultationRecord
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/appointments/A101/consultation", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	record := &entities.ConsultationRecord{
		AppointmentID:  "A101",
		ChiefComplaint: "fever",
		Diagnosis:      "influenza",
		Prescriptions:  []entities.Prescription{{ID: 1, MedicationName: "Paracetamol"}},
	}
	require.NoError(t, c.UpdateConsultation(context.Background(), "A101", record))

	assert.Equal(t, "influenza", got.Diagnosis)
	require.Len(t, got.Prescriptions, 1)
	assert.Equal(t, "Paracetamol", got.Prescriptions[0].MedicationName)
}

func TestHTTPClient_UpdateConsultation_ValidatesBeforeSending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})

	err := c.UpdateConsultation(context.Background(), "A101", &entities.ConsultationRecord{AppointmentID: "A101"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestHTTPClient_UploadAudio(t *testing.T) {
	capturedAt := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointments/A101/transcriptions", r.URL.Path)
		assert.Equal(t, "up-1", r.Header.Get("X-Upload-ID"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "A101", r.FormValue("appointment_id"))
		assert.Equal(t, "up-1", r.FormValue("upload_id"))
		assert.Equal(t, "2026-03-02T09:05:00Z", r.FormValue("captured_at"))

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("RIFFdata"), data)
		assert.Equal(t, "A101-1772442300.webm", header.Filename)

		io.WriteString(w, `{
			"chief_complaint": "fever",
			"history_of_illness": "three days",
			"vitals": {"blood_pressure": "120/80", "pulse": "88", "temperature": "38.5C"},
			"allergies": "penicillin",
			"follow_up_instruction": "rest",
			"next_appointment_suggestion": "2026-03-09"
		}`)
	})

	result, err := c.UploadAudio(context.Background(), providers.AudioUpload{
		UploadID:      "up-1",
		AppointmentID: "A101",
		CapturedAt:    capturedAt,
		Payload:       entities.AudioPayload{Data: []byte("RIFFdata"), ContentType: "audio/webm", CapturedAt: capturedAt},
	})
	require.NoError(t, err)

	assert.Equal(t, "fever", result.ChiefComplaint)
	assert.Equal(t, "120/80", result.Vitals.BloodPressure)
	assert.Equal(t, "up-1", result.UploadID)
	assert.Equal(t, "A101", result.AppointmentID)
}

func TestHTTPClient_UploadAudio_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c := NewClient(server.URL)
	_, err := c.UploadAudio(context.Background(), providers.AudioUpload{
		UploadID:      "up-1",
		AppointmentID: "A101",
		Payload:       entities.AudioPayload{Data: []byte{1}},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}
