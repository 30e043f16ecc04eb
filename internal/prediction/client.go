// Package prediction enriches readings with patient attributes and calls the
// remote inference service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sebasr/vitals-service/internal/models"
)

const (
	// PredictPath is the inference endpoint relative to the API base URL
	PredictPath = "/predict/"

	// DefaultTimeout bounds one inference call
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 64 << 10
)

var (
	// ErrPredictionTimeout is returned when the inference call exceeds its timeout
	ErrPredictionTimeout = errors.New("prediction timed out")

	// ErrPredictionFailed is returned for every other inference failure
	ErrPredictionFailed = errors.New("prediction failed")
)

// Request is the inference payload: static profile attributes plus the
// reading's vitals. Absent vitals are sent as null.
type Request struct {
	Age         int     `json:"age"`
	BloodGroup  string  `json:"bloodGroup"`
	HasBPHigh   bool    `json:"hasBpHigh"`
	HasBPLow    bool    `json:"hasBpLow"`
	Gender      string  `json:"gender"`
	Height      float64 `json:"height"`
	HasDiabetes bool    `json:"hasDiabetes"`
	Weight      float64 `json:"weight"`
	HeartRate   *int    `json:"heartRate"`
	SpO2        *int    `json:"SpO2"`
	Temperature float64 `json:"temperature"`
}

// Result is the classification returned by the inference service
type Result struct {
	Label      string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// NewRequest merges a profile snapshot with a reading. Neither input is modified.
func NewRequest(reading *models.RawReading, profile *models.PatientProfile) Request {
	req := Request{
		Age:         profile.Age,
		BloodGroup:  profile.BloodGroup,
		HasBPHigh:   profile.HasBPHigh,
		HasBPLow:    profile.HasBPLow,
		Gender:      profile.Gender,
		Height:      profile.Height,
		HasDiabetes: profile.HasDiabetes,
		Weight:      profile.Weight,
		Temperature: reading.Temperature,
	}
	if reading.HeartRate != nil {
		hr := *reading.HeartRate
		req.HeartRate = &hr
	}
	if reading.SpO2 != nil {
		spo2 := *reading.SpO2
		req.SpO2 = &spo2
	}
	return req
}

// Client calls the inference service. It is safe for concurrent use and
// never retries; the caller decides what to do with a failure.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client for the inference API at baseURL.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + PredictPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// Predict classifies a reading for the given patient profile
func (c *Client) Predict(ctx context.Context, reading *models.RawReading, profile *models.PatientProfile) (*Result, error) {
	if reading == nil || profile == nil {
		return nil, fmt.Errorf("%w: reading and profile are required", ErrPredictionFailed)
	}

	body, err := json.Marshal(NewRequest(reading, profile))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrPredictionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrPredictionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrPredictionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrPredictionTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrPredictionFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrPredictionFailed, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrPredictionFailed, err)
	}
	if result.Label == "" {
		return nil, fmt.Errorf("%w: empty prediction label", ErrPredictionFailed)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrPredictionFailed, result.Confidence)
	}

	return &result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
