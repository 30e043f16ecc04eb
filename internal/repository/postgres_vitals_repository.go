package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

const vitalsColumns = `id, patient_id, recorded_at, spo2, heart_rate, temperature,
			humidity, device_status, prediction, confidence`

// PostgresVitalsRepository implements VitalsRepository using PostgreSQL
type PostgresVitalsRepository struct {
	db *sql.DB
}

// NewPostgresVitalsRepository creates a new PostgreSQL vitals repository
func NewPostgresVitalsRepository(db *sql.DB) *PostgresVitalsRepository {
	return &PostgresVitalsRepository{db: db}
}

// Append inserts a reading. The timestamp is taken from the database clock and
// never goes backwards for a patient.
func (r *PostgresVitalsRepository) Append(ctx context.Context, reading *models.VitalReading) error {
	query := `
		INSERT INTO vitals (
			id, patient_id, recorded_at, spo2, heart_rate, temperature,
			humidity, device_status, prediction, confidence
		) VALUES (
			$1, $2,
			GREATEST(clock_timestamp(), (SELECT MAX(recorded_at) FROM vitals WHERE patient_id = $2)),
			$3, $4, $5, $6, $7, $8, $9
		)
		RETURNING recorded_at
	`

	id := uuid.New()
	row := r.db.QueryRowContext(ctx, query,
		id, reading.PatientID,
		reading.SpO2, reading.HeartRate, reading.Temperature,
		reading.Humidity, reading.DeviceStatus, reading.Prediction, reading.Confidence,
	)

	var recordedAt sql.NullTime
	if err := row.Scan(&recordedAt); err != nil {
		return fmt.Errorf("%w: failed to insert vital reading: %w", ErrPersistence, err)
	}

	reading.ID = id
	reading.Timestamp = recordedAt.Time
	return nil
}

// Query returns one ordered window of readings
func (r *PostgresVitalsRepository) Query(ctx context.Context, q models.VitalsQuery) ([]*models.VitalReading, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch {
	case q.After != nil:
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+vitalsColumns+`
		FROM vitals
		WHERE patient_id = $1
			AND (recorded_at < $2 OR (recorded_at = $2 AND id > $3))
		ORDER BY recorded_at DESC, id ASC
		LIMIT $4
	`, q.PatientID, q.After.Timestamp, q.After.ID, q.Limit)

	case q.Before != nil:
		// Walk towards newer readings, then flip back to display order
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+vitalsColumns+`
		FROM vitals
		WHERE patient_id = $1
			AND (recorded_at > $2 OR (recorded_at = $2 AND id < $3))
		ORDER BY recorded_at ASC, id DESC
		LIMIT $4
	`, q.PatientID, q.Before.Timestamp, q.Before.ID, q.Limit)

	default:
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+vitalsColumns+`
		FROM vitals
		WHERE patient_id = $1
		ORDER BY recorded_at DESC, id ASC
		LIMIT $2
	`, q.PatientID, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query vitals: %w", ErrPersistence, err)
	}
	defer rows.Close()

	readings, err := scanVitalRows(rows)
	if err != nil {
		return nil, err
	}

	if q.Before != nil {
		slices.Reverse(readings)
	}
	return readings, nil
}

// scanVitalRows scans database rows into VitalReading structs
func scanVitalRows(rows *sql.Rows) ([]*models.VitalReading, error) {
	results := []*models.VitalReading{}

	for rows.Next() {
		reading := &models.VitalReading{}
		var (
			spo2, heartRate      sql.NullInt32
			humidity, confidence sql.NullFloat64
			prediction           sql.NullString
		)

		err := rows.Scan(
			&reading.ID, &reading.PatientID, &reading.Timestamp,
			&spo2, &heartRate, &reading.Temperature,
			&humidity, &reading.DeviceStatus, &prediction, &confidence,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan vital row: %w", ErrPersistence, err)
		}

		if spo2.Valid {
			v := int(spo2.Int32)
			reading.SpO2 = &v
		}
		if heartRate.Valid {
			v := int(heartRate.Int32)
			reading.HeartRate = &v
		}
		if humidity.Valid {
			reading.Humidity = &humidity.Float64
		}
		if prediction.Valid {
			reading.Prediction = &prediction.String
		}
		if confidence.Valid {
			reading.Confidence = &confidence.Float64
		}

		results = append(results, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating vital rows: %w", ErrPersistence, err)
	}

	return results, nil
}
