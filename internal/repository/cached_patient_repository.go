package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/models"
)

const patientCacheKeyPrefix = "vitals:patient:"

// CachedPatientRepository serves profile snapshots from Redis and falls back
// to the wrapped repository on a miss. Cache failures never fail a lookup.
type CachedPatientRepository struct {
	next   PatientRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPatientRepository wraps next with a Redis read-through cache
func NewCachedPatientRepository(next PatientRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedPatientRepository {
	return &CachedPatientRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func patientCacheKey(id uuid.UUID) string {
	return patientCacheKeyPrefix + id.String()
}

// GetByID returns the cached profile, loading and caching it on a miss
func (r *CachedPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	key := patientCacheKey(id)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile models.PatientProfile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
		r.logger.Warn("discarding undecodable cached profile", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("profile cache read failed", zap.String("key", key), zap.Error(err))
	}

	profile, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("profile cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return profile, nil
}

// Upsert writes through to the wrapped repository and evicts the cached copy
func (r *CachedPatientRepository) Upsert(ctx context.Context, profile *models.PatientProfile) error {
	if err := r.next.Upsert(ctx, profile); err != nil {
		return err
	}

	if err := r.client.Del(ctx, patientCacheKey(profile.PatientID)).Err(); err != nil {
		r.logger.Warn("profile cache eviction failed", zap.Error(err))
	}
	return nil
}
