package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

// MemoryPatientRepository is an in-process PatientRepository
type MemoryPatientRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.PatientProfile
}

// NewMemoryPatientRepository creates an empty in-memory patient repository
func NewMemoryPatientRepository() *MemoryPatientRepository {
	return &MemoryPatientRepository{profiles: make(map[uuid.UUID]models.PatientProfile)}
}

// GetByID returns a copy of the stored profile
func (r *MemoryPatientRepository) GetByID(_ context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &profile, nil
}

// Upsert stores a copy of the profile
func (r *MemoryPatientRepository) Upsert(_ context.Context, profile *models.PatientProfile) error {
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.PatientID] = *profile
	return nil
}
