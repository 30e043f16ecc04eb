package device

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *int
		wantErr bool
	}{
		{name: "integer", input: `72`, want: intPtr(72)},
		{name: "zero is a real value", input: `0`, want: intPtr(0)},
		{name: "float rounds", input: `97.6`, want: intPtr(98)},
		{name: "sentinel", input: `"--"`, want: nil},
		{name: "null", input: `null`, want: nil},
		{name: "other string", input: `"72"`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
		{name: "upper bound", input: `1000`, want: intPtr(1000)},
		{name: "huge", input: `1e300`, wantErr: true},
		{name: "above bound", input: `1000.5`, wantErr: true},
		{name: "negative", input: `-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v SensorValue
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Value)
		})
	}
}

func TestParse_SentinelNeverBecomesZero(t *testing.T) {
	for _, body := range []string{
		`{"heartRate":"--","spo2":"--","temperature":36.1}`,
		`{"temperature":36.1}`,
		`{"heartRate":null,"spo2":null,"temperature":36.1}`,
	} {
		reading, err := Parse([]byte(body))
		require.NoError(t, err, body)
		assert.Nil(t, reading.HeartRate, body)
		assert.Nil(t, reading.SpO2, body)
	}
}

func TestParse_OutOfRangeSensorValue(t *testing.T) {
	for _, body := range []string{
		`{"heartRate":1e300,"spo2":97,"temperature":36.1}`,
		`{"heartRate":72,"spo2":-5,"temperature":36.1}`,
	} {
		reading, err := Parse([]byte(body))
		assert.Nil(t, reading, body)
		assert.True(t, errors.Is(err, ErrMalformedResponse), body)
	}
}

func intPtr(v int) *int { return &v }
