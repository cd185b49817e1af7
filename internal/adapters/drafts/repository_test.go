package drafts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/domain/repositories"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func TestDraftRepositories(t *testing.T) {
	cache := newFakeCache()
	impls := map[string]repositories.DraftRepository{
		"memory": NewMemoryRepository(),
		"cache":  NewCacheRepository(cache, time.Hour),
	}

	for name, repo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "A101")
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

			draft := entities.NewConsultationDraft("A101", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
			complaint := "fever"
			draft.Apply(entities.DraftUpdate{ChiefComplaint: &complaint})
			draft.AddPrescription()
			require.NoError(t, repo.Save(ctx, draft))

			got, err := repo.Get(ctx, "A101")
			require.NoError(t, err)
			assert.Equal(t, "fever", got.ChiefComplaint)
			assert.True(t, got.Edited[entities.FieldChiefComplaint])
			assert.Len(t, got.Prescriptions, 2)
			assert.Equal(t, 3, got.NextPrescriptionID)

			got.ChiefComplaint = "changed"
			again, err := repo.Get(ctx, "A101")
			require.NoError(t, err)
			assert.Equal(t, "fever", again.ChiefComplaint)

			require.NoError(t, repo.Delete(ctx, "A101"))
			require.NoError(t, repo.Delete(ctx, "A101"))
			_, err = repo.Get(ctx, "A101")
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

			assert.True(t, apperrors.IsType(repo.Save(ctx, &entities.ConsultationDraft{}), apperrors.ErrorTypeValidation))
		})
	}
}

func TestCacheRepository_UsesTTLAndKey(t *testing.T) {
	cache := newFakeCache()
	repo := NewCacheRepository(cache, 24*time.Hour)

	require.NoError(t, repo.Save(context.Background(), entities.NewConsultationDraft("A101", time.Now())))

	assert.Equal(t, 24*time.Hour, cache.ttls["draft:A101"])
}

func TestCacheRepository_CorruptEntry(t *testing.T) {
	cache := newFakeCache()
	cache.data["draft:A101"] = []byte("{not json")
	repo := NewCacheRepository(cache, time.Hour)

	_, err := repo.Get(context.Background(), "A101")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
