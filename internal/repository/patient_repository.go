package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

// ErrPatientNotFound is returned when no profile exists for a patient
var ErrPatientNotFound = errors.New("patient profile not found")

// PatientRepository reads patient profile snapshots
type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error)
	// Upsert stores a profile snapshot pushed by the profile management service
	Upsert(ctx context.Context, profile *models.PatientProfile) error
}
