package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
	"github.com/zatekoja/doctorconsole/pkg/validation"
)

// HTTPClient talks to the clinic backend REST API
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

var (
	_ providers.ClinicBackend        = (*HTTPClient)(nil)
	_ providers.TranscriptionGateway = (*HTTPClient)(nil)
)

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

// WithToken sets the bearer token forwarded on every request
func WithToken(token string) Option {
	return func(h *HTTPClient) {
		h.token = token
	}
}

// NewClient creates a clinic API client. No client-side timeout is set: uploads
// can be large and slow, and callers bound requests through ctx when they need to.
func NewClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queueResponse struct {
	CurrentPatient *entities.Appointment  `json:"current_patient"`
	Waiting        []entities.Appointment `json:"waiting"`
}

type transcriptResponse struct {
	ChiefComplaint            string          `json:"chief_complaint"`
	HistoryOfIllness          string          `json:"history_of_illness"`
	Vitals                    entities.Vitals `json:"vitals"`
	Allergies                 string          `json:"allergies"`
	FollowUpInstruction       string          `json:"follow_up_instruction"`
	NextAppointmentSuggestion string          `json:"next_appointment_suggestion"`
}

// FetchQueueSnapshot handles GET /doctors/{id}/queue
func (c *HTTPClient) FetchQueueSnapshot(ctx context.Context, doctorID string) (*entities.QueueSnapshot, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, apperrors.NewValidationError("doctor id is required")
	}

	endpoint := fmt.Sprintf("%s/doctors/%s/queue", c.baseURL, url.PathEscape(doctorID))
	var out queueResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}

	if out.CurrentPatient != nil {
		if err := validation.Struct(out.CurrentPatient); err != nil {
			return nil, apperrors.NewExternalError("clinic api returned an invalid current patient", err)
		}
	}
	for i := range out.Waiting {
		if err := validation.Struct(&out.Waiting[i]); err != nil {
			return nil, apperrors.NewExternalError("clinic api returned an invalid waiting appointment", err)
		}
	}

	return &entities.QueueSnapshot{
		DoctorID:       doctorID,
		CurrentPatient: out.CurrentPatient,
		Waiting:        out.Waiting,
		FetchedAt:      c.now(),
	}, nil
}

// CompleteAppointment handles POST /appointments/{id}/complete
func (c *HTTPClient) CompleteAppointment(ctx context.Context, appointmentID string) error {
	if strings.TrimSpace(appointmentID) == "" {
		return apperrors.NewValidationError("appointment id is required")
	}
	endpoint := fmt.Sprintf("%s/appointments/%s/complete", c.baseURL, url.PathEscape(appointmentID))
	return c.doJSON(ctx, http.MethodPost, endpoint, nil, nil)
}

// UpdateConsultation handles PUT /appointments/{id}/consultation
func (c *HTTPClient) UpdateConsultation(ctx context.Context, appointmentID string, record *entities.ConsultationRecord) error {
	if record == nil {
		return apperrors.NewValidationError("consultation record is required")
	}
	if err := validation.Struct(record); err != nil {
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewInternalError("failed to encode consultation", err)
	}

	endpoint := fmt.Sprintf("%s/appointments/%s/consultation", c.baseURL, url.PathEscape(appointmentID))
	return c.doJSON(ctx, http.MethodPut, endpoint, bytes.NewReader(body), nil)
}

// UploadAudio handles POST /appointments/{id}/transcriptions as multipart/form-data
func (c *HTTPClient) UploadAudio(ctx context.Context, upload providers.AudioUpload) (*entities.TranscriptResult, error) {
	if upload.Payload.Size() == 0 {
		return nil, apperrors.NewValidationError("audio payload is empty")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := map[string]string{
		"appointment_id": upload.AppointmentID,
		"upload_id":      upload.UploadID,
		"captured_at":    upload.CapturedAt.UTC().Format(time.RFC3339),
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, apperrors.NewInternalError("failed to build upload form", err)
		}
	}

	contentType := upload.Payload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s-%d%s"`,
		upload.AppointmentID, upload.CapturedAt.Unix(), extensionFor(contentType)))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}
	if _, err := part.Write(upload.Payload.Data); err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}
	if err := form.Close(); err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}

	endpoint := fmt.Sprintf("%s/appointments/%s/transcriptions", c.baseURL, url.PathEscape(upload.AppointmentID))
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Upload-ID", upload.UploadID)

	var out transcriptResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &entities.TranscriptResult{
		UploadID:                  upload.UploadID,
		AppointmentID:             upload.AppointmentID,
		ChiefComplaint:            out.ChiefComplaint,
		HistoryOfIllness:          out.HistoryOfIllness,
		Vitals:                    out.Vitals,
		Allergies:                 out.Allergies,
		FollowUpInstruction:       out.FollowUpInstruction,
		NextAppointmentSuggestion: out.NextAppointmentSuggestion,
		ReceivedAt:                c.now(),
	}, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(contentType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(contentType, "audio/wav"), strings.HasPrefix(contentType, "audio/x-wav"):
		return ".wav"
	}
	return ".bin"
}

func (c *HTTPClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build clinic api request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalError("clinic api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalError("failed to decode clinic api response", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = fmt.Sprintf("clinic api returned status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(message)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError(message)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.NewConflictError(message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.NewValidationError(message)
	default:
		return apperrors.NewExternalError(message, fmt.Errorf("status %d", resp.StatusCode))
	}
}
