package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sebasr/vitals-service/internal/models"
)

// NotReady is the value the device reports for a sensor that has no data yet
const NotReady = "--"

// MaxSensorValue bounds heart rate and SpO2 values accepted from the device
const MaxSensorValue = 1000

// payload mirrors the device JSON document
type payload struct {
	Temperature *float64    `json:"temperature"`
	Humidity    *float64    `json:"humidity"`
	HeartRate   SensorValue `json:"heartRate"`
	SpO2        SensorValue `json:"spo2"`
	Status      string      `json:"status"`
}

// SensorValue is an integer sensor field that may carry the NotReady sentinel
type SensorValue struct {
	Value *int
}

// UnmarshalJSON accepts a JSON number, null, or the NotReady string
func (s *SensorValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		s.Value = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == NotReady {
			s.Value = nil
			return nil
		}
		return fmt.Errorf("unexpected sensor value %q", str)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if math.IsNaN(f) || f < 0 || f > MaxSensorValue {
		return fmt.Errorf("sensor value out of range: %v", f)
	}
	v := int(math.Round(f))
	s.Value = &v
	return nil
}

// Parse decodes a device document into a normalized reading
func Parse(body []byte) (*models.RawReading, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.Temperature == nil {
		return nil, fmt.Errorf("%w: missing temperature", ErrMalformedResponse)
	}

	return &models.RawReading{
		Temperature: *p.Temperature,
		Humidity:    p.Humidity,
		HeartRate:   p.HeartRate.Value,
		SpO2:        p.SpO2.Value,
		Status:      p.Status,
	}, nil
}
