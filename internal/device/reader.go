// Package device reads raw vitals from the local sensor endpoint.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sebasr/vitals-service/internal/models"
)

const (
	// DataPath is the sensor endpoint path relative to the device URL
	DataPath = "/data"

	// DefaultTimeout bounds one device request
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 64 << 10
)

var (
	// ErrDeviceUnavailable covers every failure to obtain a reading: unreachable
	// device, timeout, bad status or an undecodable response.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrMalformedResponse is returned when the content type or payload is invalid.
	// It matches ErrDeviceUnavailable with errors.Is.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrDeviceUnavailable)
)

// Reader fetches one reading per call from the device
type Reader struct {
	endpoint string
	client   *http.Client
}

// NewReader creates a reader for the device at baseURL (e.g. "http://192.168.4.1").
// A non-positive timeout falls back to DefaultTimeout.
func NewReader(baseURL string, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{
		endpoint: strings.TrimSuffix(baseURL, "/") + DataPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (r *Reader) WithHTTPClient(client *http.Client) *Reader {
	r.client = client
	return r
}

// Read fetches and normalizes one reading. Sensor values reported as "--"
// are returned as nil rather than zero.
func (r *Reader) Read(ctx context.Context) (*models.RawReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrDeviceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDeviceUnavailable, resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedResponse, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrDeviceUnavailable, err)
	}

	return Parse(body)
}
