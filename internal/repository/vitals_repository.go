// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"errors"

	"github.com/sebasr/vitals-service/internal/models"
)

const (
	// MaxQueryLimit caps the number of readings returned by one query
	MaxQueryLimit = 1000
)

var (
	// ErrPersistence is returned when the backing store fails to append or query
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidQuery is returned when both cursors are set on one query
	ErrInvalidQuery = errors.New("invalid query: at most one of after and before may be set")
)

// VitalsRepository is the append-only records store for vital readings
type VitalsRepository interface {
	// Append persists a reading, assigning its ID and server timestamp.
	// Caller-supplied ID and Timestamp values are ignored. The write is atomic.
	Append(ctx context.Context, reading *models.VitalReading) error

	// Query returns one window of a patient's readings ordered by timestamp
	// descending, then id ascending.
	Query(ctx context.Context, q models.VitalsQuery) ([]*models.VitalReading, error)
}

// normalizeQuery validates q and clamps its limit
func normalizeQuery(q models.VitalsQuery) (models.VitalsQuery, error) {
	if q.After != nil && q.Before != nil {
		return q, ErrInvalidQuery
	}
	if q.Limit <= 0 {
		q.Limit = models.DefaultPageSize
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	return q, nil
}
