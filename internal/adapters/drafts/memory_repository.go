package drafts

import (
	"context"
	"fmt"
	"sync"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/repositories"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

// MemoryRepository keeps drafts in process memory. Drafts are lost on restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	drafts map[string]*entities.ConsultationDraft
}

// NewMemoryRepository creates an empty in-memory draft repository
func NewMemoryRepository() repositories.DraftRepository {
	return &MemoryRepository{drafts: make(map[string]*entities.ConsultationDraft)}
}

// Get retrieves a copy of the stored draft
func (r *MemoryRepository) Get(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	draft, ok := r.drafts[appointmentID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("draft for appointment %s not found", appointmentID))
	}
	return draft.Clone(), nil
}

// Save stores a copy of the draft
func (r *MemoryRepository) Save(ctx context.Context, draft *entities.ConsultationDraft) error {
	if draft == nil || draft.AppointmentID == "" {
		return apperrors.NewValidationError("draft must carry an appointment id")
	}

	r.mu.Lock()
	r.drafts[draft.AppointmentID] = draft.Clone()
	r.mu.Unlock()
	return nil
}

// Delete removes the draft
func (r *MemoryRepository) Delete(ctx context.Context, appointmentID string) error {
	r.mu.Lock()
	delete(r.drafts, appointmentID)
	r.mu.Unlock()
	return nil
}
