package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
)

// MemoryVitalsRepository is an in-process VitalsRepository used when no
// database is configured and in tests.
type MemoryVitalsRepository struct {
	mu        sync.RWMutex
	byPatient map[uuid.UUID][]*models.VitalReading // kept in display order
	now       func() time.Time
}

// NewMemoryVitalsRepository creates an empty in-memory vitals repository
func NewMemoryVitalsRepository() *MemoryVitalsRepository {
	return &MemoryVitalsRepository{
		byPatient: make(map[uuid.UUID][]*models.VitalReading),
		now:       time.Now,
	}
}

// WithClock replaces the time source used to stamp appended readings
func (r *MemoryVitalsRepository) WithClock(now func() time.Time) *MemoryVitalsRepository {
	r.now = now
	return r
}

// Append stores a copy of the reading with a fresh ID and timestamp.
// Timestamps never go backwards for a patient.
func (r *MemoryVitalsRepository) Append(ctx context.Context, reading *models.VitalReading) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: failed to insert vital reading: %w", ErrPersistence, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC()
	existing := r.byPatient[reading.PatientID]
	if len(existing) > 0 && ts.Before(existing[0].Timestamp) {
		ts = existing[0].Timestamp
	}

	reading.ID = uuid.New()
	reading.Timestamp = ts

	stored := reading.Clone()
	idx, _ := slices.BinarySearchFunc(existing, stored, func(a, b *models.VitalReading) int {
		switch {
		case a.Cursor().Precedes(b.Cursor()):
			return -1
		case b.Cursor().Precedes(a.Cursor()):
			return 1
		}
		return 0
	})
	r.byPatient[reading.PatientID] = slices.Insert(existing, idx, stored)
	return nil
}

// Query returns copies of one ordered window of readings
func (r *MemoryVitalsRepository) Query(ctx context.Context, q models.VitalsQuery) ([]*models.VitalReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to query vitals: %w", ErrPersistence, err)
	}

	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.byPatient[q.PatientID]
	start, end := 0, len(all)

	switch {
	case q.After != nil:
		for start < len(all) && !q.After.Precedes(all[start].Cursor()) {
			start++
		}
		end = min(start+q.Limit, len(all))
	case q.Before != nil:
		end = 0
		for end < len(all) && all[end].Cursor().Precedes(*q.Before) {
			end++
		}
		start = max(end-q.Limit, 0)
	default:
		end = min(q.Limit, len(all))
	}

	results := make([]*models.VitalReading, 0, end-start)
	for _, reading := range all[start:end] {
		results = append(results, reading.Clone())
	}
	return results, nil
}
