package repository

import (
	"context"

	"github.com/sebasr/vitals-service/internal/models"
)

// MockVitalsRepository is a mock implementation of VitalsRepository for testing
type MockVitalsRepository struct {
	AppendFunc func(ctx context.Context, reading *models.VitalReading) error
	QueryFunc  func(ctx context.Context, q models.VitalsQuery) ([]*models.VitalReading, error)
}

// NewMockVitalsRepository creates a new mock repository with default implementations
func NewMockVitalsRepository() *MockVitalsRepository {
	return &MockVitalsRepository{
		AppendFunc: func(_ context.Context, _ *models.VitalReading) error {
			return nil
		},
		QueryFunc: func(_ context.Context, _ models.VitalsQuery) ([]*models.VitalReading, error) {
			return []*models.VitalReading{}, nil
		},
	}
}

// Append implements VitalsRepository.Append
func (m *MockVitalsRepository) Append(ctx context.Context, reading *models.VitalReading) error {
	return m.AppendFunc(ctx, reading)
}

// Query implements VitalsRepository.Query
func (m *MockVitalsRepository) Query(ctx context.Context, q models.VitalsQuery) ([]*models.VitalReading, error) {
	return m.QueryFunc(ctx, q)
}
