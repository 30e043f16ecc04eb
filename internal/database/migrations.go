package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrations creates the patients and vitals tables. Every statement is idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY,
		age INTEGER NOT NULL DEFAULT 0,
		gender TEXT NOT NULL DEFAULT '',
		blood_group TEXT NOT NULL DEFAULT '',
		height DOUBLE PRECISION NOT NULL DEFAULT 0,
		weight DOUBLE PRECISION NOT NULL DEFAULT 0,
		has_bp_high BOOLEAN NOT NULL DEFAULT FALSE,
		has_bp_low BOOLEAN NOT NULL DEFAULT FALSE,
		has_diabetes BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS vitals (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		spo2 INTEGER,
		heart_rate INTEGER,
		temperature DOUBLE PRECISION NOT NULL,
		humidity DOUBLE PRECISION,
		device_status TEXT NOT NULL DEFAULT '',
		prediction TEXT,
		confidence DOUBLE PRECISION CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1))
	);`,

	`CREATE INDEX IF NOT EXISTS idx_vitals_patient_order ON vitals (patient_id, recorded_at DESC, id ASC);`,
}

// Migrate applies Migrations in order
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
