package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/domain/repositories"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

// CacheRepository stores drafts as JSON in a CacheProvider so they survive a
// console restart. Abandoned drafts expire after ttl.
type CacheRepository struct {
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewCacheRepository creates a cache-backed draft repository
func NewCacheRepository(cache providers.CacheProvider, ttl time.Duration) repositories.DraftRepository {
	return &CacheRepository{
		cache: cache,
		ttl:   ttl,
	}
}

func draftCacheKey(appointmentID string) string {
	return fmt.Sprintf("draft:%s", appointmentID)
}

// Get retrieves a draft
func (r *CacheRepository) Get(ctx context.Context, appointmentID string) (*entities.ConsultationDraft, error) {
	data, err := r.cache.Get(ctx, draftCacheKey(appointmentID))
	if errors.Is(err, providers.ErrCacheMiss) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("draft for appointment %s not found", appointmentID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read draft", err)
	}

	var draft entities.ConsultationDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		log.Error().Err(err).Str("appointment_id", appointmentID).Msg("Stored draft is unreadable")
		return nil, apperrors.NewInternalError("failed to decode draft", err)
	}
	if draft.Edited == nil {
		draft.Edited = make(map[entities.DraftField]bool)
	}
	return &draft, nil
}

// Save stores the draft and refreshes its expiry
func (r *CacheRepository) Save(ctx context.Context, draft *entities.ConsultationDraft) error {
	if draft == nil || draft.AppointmentID == "" {
		return apperrors.NewValidationError("draft must carry an appointment id")
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return apperrors.NewInternalError("failed to encode draft", err)
	}
	if err := r.cache.Set(ctx, draftCacheKey(draft.AppointmentID), data, r.ttl); err != nil {
		return apperrors.NewInternalError("failed to store draft", err)
	}
	return nil
}

// Delete removes the draft
func (r *CacheRepository) Delete(ctx context.Context, appointmentID string) error {
	if err := r.cache.Delete(ctx, draftCacheKey(appointmentID)); err != nil {
		return apperrors.NewInternalError("failed to delete draft", err)
	}
	return nil
}
