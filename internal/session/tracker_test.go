package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/repository"
)

func TestTracker(t *testing.T) {
	profiles := repository.NewMemoryPatientRepository()
	tracker := NewTracker(profiles)
	ctx := context.Background()

	_, ok := tracker.Active()
	assert.False(t, ok)
	_, err := tracker.CurrentProfile(ctx)
	assert.ErrorIs(t, err, ErrNoActivePatient)

	known := uuid.New()
	require.NoError(t, profiles.Upsert(ctx, &models.PatientProfile{PatientID: known, Age: 42}))

	tracker.SetActive(known)
	id, ok := tracker.Active()
	require.True(t, ok)
	assert.Equal(t, known, id)

	profile, err := tracker.CurrentProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, profile.Age)

	tracker.SetActive(uuid.New())
	_, err = tracker.CurrentProfile(ctx)
	assert.ErrorIs(t, err, repository.ErrPatientNotFound)

	tracker.Clear()
	_, err = tracker.CurrentProfile(ctx)
	assert.ErrorIs(t, err, ErrNoActivePatient)
}

func TestTracker_ProfileIgnoresActivePatient(t *testing.T) {
	profiles := repository.NewMemoryPatientRepository()
	tracker := NewTracker(profiles)
	ctx := context.Background()

	requester, other := uuid.New(), uuid.New()
	require.NoError(t, profiles.Upsert(ctx, &models.PatientProfile{PatientID: requester, Age: 30}))
	require.NoError(t, profiles.Upsert(ctx, &models.PatientProfile{PatientID: other, Age: 70}))

	tracker.SetActive(other)

	profile, err := tracker.Profile(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, requester, profile.PatientID)
	assert.Equal(t, 30, profile.Age)
}
