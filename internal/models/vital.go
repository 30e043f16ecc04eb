// Package models contains data models for the vitals service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RawReading is one normalized sample from the local sensor device.
// A nil SpO2 or HeartRate means the sensor reported that it was not ready.
type RawReading struct {
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity,omitempty"`
	HeartRate   *int     `json:"heartRate,omitempty"`
	SpO2        *int     `json:"spo2,omitempty"`
	Status      string   `json:"status"`
}

// VitalReading is one persisted sensor/inference event.
// It is immutable once written; corrections are new rows.
type VitalReading struct {
	// Assigned by the store on write
	ID uuid.UUID `json:"id"`

	PatientID uuid.UUID `json:"patientId"`

	// Absent when the sensor was not ready
	SpO2      *int `json:"spo2"`
	HeartRate *int `json:"heartRate"`

	Temperature  float64  `json:"temperature"`
	Humidity     *float64 `json:"humidity,omitempty"`
	DeviceStatus string   `json:"deviceStatus,omitempty"`

	// Absent when inference failed
	Prediction *string  `json:"prediction"`
	Confidence *float64 `json:"confidence"`

	// Server-assigned creation time, the sort key
	Timestamp time.Time `json:"timestamp"`
}

// NewVitalReading builds an unsaved reading for a patient from a device sample.
// Pointer fields are copied so the reading never aliases the sample.
func NewVitalReading(patientID uuid.UUID, raw *RawReading) *VitalReading {
	return &VitalReading{
		PatientID:    patientID,
		SpO2:         copyInt(raw.SpO2),
		HeartRate:    copyInt(raw.HeartRate),
		Temperature:  raw.Temperature,
		Humidity:     copyFloat(raw.Humidity),
		DeviceStatus: raw.Status,
	}
}

// WithPrediction records the inference label and confidence.
func (v *VitalReading) WithPrediction(label string, confidence float64) *VitalReading {
	v.Prediction = &label
	v.Confidence = &confidence
	return v
}

// HasPrediction reports whether inference succeeded for this reading
func (v *VitalReading) HasPrediction() bool {
	return v.Prediction != nil && v.Confidence != nil
}

// Cursor returns the sort position of the reading
func (v *VitalReading) Cursor() Cursor {
	return Cursor{Timestamp: v.Timestamp, ID: v.ID}
}

// Clone returns a deep copy of the reading
func (v *VitalReading) Clone() *VitalReading {
	c := *v
	c.SpO2 = copyInt(v.SpO2)
	c.HeartRate = copyInt(v.HeartRate)
	c.Humidity = copyFloat(v.Humidity)
	c.Confidence = copyFloat(v.Confidence)
	if v.Prediction != nil {
		p := *v.Prediction
		c.Prediction = &p
	}
	return &c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
