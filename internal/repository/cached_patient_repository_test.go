package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/models"
)

func setupCachedPatients(t *testing.T) (*miniredis.Miniredis, *MockPatientRepository, *CachedPatientRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := NewMockPatientRepository()
	return mr, backend, NewCachedPatientRepository(backend, client, time.Minute, zap.NewNop())
}

func TestCachedPatientRepository_MissThenHit(t *testing.T) {
	mr, backend, repo := setupCachedPatients(t)

	id := uuid.New()
	calls := 0
	backend.GetByIDFunc = func(_ context.Context, got uuid.UUID) (*models.PatientProfile, error) {
		calls++
		return &models.PatientProfile{PatientID: got, Age: 33, BloodGroup: "B+"}, nil
	}

	first, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 33, first.Age)
	assert.True(t, mr.Exists(patientCacheKey(id)))
	assert.Equal(t, time.Minute, mr.TTL(patientCacheKey(id)))

	second, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCachedPatientRepository_ServesCachedValue(t *testing.T) {
	mr, backend, repo := setupCachedPatients(t)

	id := uuid.New()
	data, err := json.Marshal(models.PatientProfile{PatientID: id, Age: 61})
	require.NoError(t, err)
	require.NoError(t, mr.Set(patientCacheKey(id), string(data)))

	backend.GetByIDFunc = func(_ context.Context, _ uuid.UUID) (*models.PatientProfile, error) {
		t.Fatal("backend should not be called on a cache hit")
		return nil, nil
	}

	profile, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 61, profile.Age)
}

func TestCachedPatientRepository_NotFoundIsNotCached(t *testing.T) {
	mr, _, repo := setupCachedPatients(t)

	id := uuid.New()
	_, err := repo.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.False(t, mr.Exists(patientCacheKey(id)))
}

func TestCachedPatientRepository_CorruptEntryFallsBack(t *testing.T) {
	mr, backend, repo := setupCachedPatients(t)

	id := uuid.New()
	require.NoError(t, mr.Set(patientCacheKey(id), "{not json"))
	backend.GetByIDFunc = func(_ context.Context, got uuid.UUID) (*models.PatientProfile, error) {
		return &models.PatientProfile{PatientID: got, Age: 20}, nil
	}

	profile, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 20, profile.Age)
}

func TestCachedPatientRepository_RedisDownFallsBack(t *testing.T) {
	mr, backend, repo := setupCachedPatients(t)
	mr.Close()

	backend.GetByIDFunc = func(_ context.Context, got uuid.UUID) (*models.PatientProfile, error) {
		return &models.PatientProfile{PatientID: got, Age: 45}, nil
	}

	profile, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 45, profile.Age)
}

func TestCachedPatientRepository_UpsertEvicts(t *testing.T) {
	mr, backend, repo := setupCachedPatients(t)

	id := uuid.New()
	require.NoError(t, mr.Set(patientCacheKey(id), `{"age":1}`))

	var upserted *models.PatientProfile
	backend.UpsertFunc = func(_ context.Context, p *models.PatientProfile) error {
		upserted = p
		return nil
	}

	profile := &models.PatientProfile{PatientID: id, Age: 2}
	require.NoError(t, repo.Upsert(context.Background(), profile))

	assert.Same(t, profile, upserted)
	assert.False(t, mr.Exists(patientCacheKey(id)))
}
