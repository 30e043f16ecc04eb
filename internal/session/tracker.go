// Package session tracks which patient the acquisition loop is polling for.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/repository"
)

// ErrNoActivePatient is returned when no patient has signed in
var ErrNoActivePatient = errors.New("no active patient session")

// Tracker holds the active patient and resolves their profile snapshot
type Tracker struct {
	active   atomic.Pointer[uuid.UUID]
	profiles repository.PatientRepository
}

// NewTracker creates a Tracker with no active patient
func NewTracker(profiles repository.PatientRepository) *Tracker {
	return &Tracker{profiles: profiles}
}

// SetActive makes patientID the patient readings are attributed to
func (t *Tracker) SetActive(patientID uuid.UUID) {
	t.active.Store(&patientID)
}

// Clear ends the active session
func (t *Tracker) Clear() {
	t.active.Store(nil)
}

// Active returns the active patient, if any
func (t *Tracker) Active() (uuid.UUID, bool) {
	id := t.active.Load()
	if id == nil {
		return uuid.Nil, false
	}
	return *id, true
}

// CurrentProfile returns a snapshot of the active patient's profile
func (t *Tracker) CurrentProfile(ctx context.Context) (*models.PatientProfile, error) {
	id, ok := t.Active()
	if !ok {
		return nil, ErrNoActivePatient
	}
	return t.Profile(ctx, id)
}

// Profile returns a snapshot of the given patient's profile
func (t *Tracker) Profile(ctx context.Context, patientID uuid.UUID) (*models.PatientProfile, error) {
	return t.profiles.GetByID(ctx, patientID)
}
