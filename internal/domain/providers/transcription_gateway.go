package providers

import (
	"context"
	"time"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// AudioUpload is a finalized recording tagged for traceability
type AudioUpload struct {
	UploadID      string
	AppointmentID string
	CapturedAt    time.Time
	Payload       entities.AudioPayload
}

// TranscriptionGateway turns an appointment recording into structured consultation fields
type TranscriptionGateway interface {
	// UploadAudio sends the recording and waits for the structured result
	UploadAudio(ctx context.Context, upload AudioUpload) (*entities.TranscriptResult, error)
}
