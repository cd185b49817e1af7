package repositories

import (
	"context"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
)

// DraftRepository defines the interface for consultation draft storage.
// Drafts live only until they are submitted or explicitly discarded.
type DraftRepository interface {
	// Get retrieves the draft for an appointment; a NOT_FOUND AppError when none exists
	Get(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error)

	// Save creates or replaces the draft for its appointment
	Save(ctx context.Context, draft *entities.ConsultationDraft) error

	// Delete removes the draft for an appointment; deleting a missing draft is not an error
	Delete(ctx context.Context, appointmentID string) error
}
