package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

// PostgresPatientRepository implements PatientRepository using PostgreSQL
type PostgresPatientRepository struct {
	db *sql.DB
}

// NewPostgresPatientRepository creates a new PostgreSQL patient repository
func NewPostgresPatientRepository(db *sql.DB) *PostgresPatientRepository {
	return &PostgresPatientRepository{db: db}
}

// GetByID retrieves a patient profile by patient ID
func (r *PostgresPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	query := `
		SELECT id, age, gender, blood_group, height, weight,
			has_bp_high, has_bp_low, has_diabetes, updated_at
		FROM patients
		WHERE id = $1
	`

	profile := &models.PatientProfile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.PatientID, &profile.Age, &profile.Gender, &profile.BloodGroup,
		&profile.Height, &profile.Weight,
		&profile.HasBPHigh, &profile.HasBPLow, &profile.HasDiabetes, &profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient profile: %w", err)
	}

	return profile, nil
}

// Upsert inserts or replaces a patient profile
func (r *PostgresPatientRepository) Upsert(ctx context.Context, profile *models.PatientProfile) error {
	query := `
		INSERT INTO patients (
			id, age, gender, blood_group, height, weight,
			has_bp_high, has_bp_low, has_diabetes, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO UPDATE SET
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			blood_group = EXCLUDED.blood_group,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			has_bp_high = EXCLUDED.has_bp_high,
			has_bp_low = EXCLUDED.has_bp_low,
			has_diabetes = EXCLUDED.has_diabetes,
			updated_at = EXCLUDED.updated_at
	`

	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		profile.PatientID, profile.Age, profile.Gender, profile.BloodGroup,
		profile.Height, profile.Weight,
		profile.HasBPHigh, profile.HasBPLow, profile.HasDiabetes, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient profile: %w", err)
	}

	return nil
}
