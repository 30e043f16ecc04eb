package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

// MockPatientRepository is a mock implementation of PatientRepository for testing
type MockPatientRepository struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error)
	UpsertFunc  func(ctx context.Context, profile *models.PatientProfile) error
}

// NewMockPatientRepository creates a new mock repository with default implementations
func NewMockPatientRepository() *MockPatientRepository {
	return &MockPatientRepository{
		GetByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.PatientProfile, error) {
			return nil, ErrPatientNotFound
		},
		UpsertFunc: func(_ context.Context, _ *models.PatientProfile) error {
			return nil
		},
	}
}

// GetByID implements PatientRepository.GetByID
func (m *MockPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	return m.GetByIDFunc(ctx, id)
}

// Upsert implements PatientRepository.Upsert
func (m *MockPatientRepository) Upsert(ctx context.Context, profile *models.PatientProfile) error {
	return m.UpsertFunc(ctx, profile)
}
