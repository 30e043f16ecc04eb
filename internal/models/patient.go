package models

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile holds the static attributes used to enrich readings.
// It is owned by the profile management service; this service only reads snapshots.
type PatientProfile struct {
	PatientID   uuid.UUID `json:"patientId"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	BloodGroup  string    `json:"bloodGroup"`
	Height      float64   `json:"height"` // cm
	Weight      float64   `json:"weight"` // kg
	HasBPHigh   bool      `json:"hasBpHigh"`
	HasBPLow    bool      `json:"hasBpLow"`
	HasDiabetes bool      `json:"hasDiabetes"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
