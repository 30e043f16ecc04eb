package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPageSize is the number of readings per page when none is configured
const DefaultPageSize = 20

// ErrInvalidCursor is returned when an encoded cursor cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor anchors a pagination window to one reading's sort position.
// Readings are ordered by timestamp descending, then id ascending.
type Cursor struct {
	Timestamp time.Time
	ID        uuid.UUID
}

// Encode returns the opaque, URL-safe form of the cursor
func (c Cursor) Encode() string {
	raw := c.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by Encode
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	tsPart, idPart, ok := strings.Cut(string(raw), "|")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, tsPart)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return Cursor{Timestamp: ts, ID: id}, nil
}

// Precedes reports whether a reading at c sorts before one at other
// (newer timestamp, or same timestamp with the smaller id).
func (c Cursor) Precedes(other Cursor) bool {
	if !c.Timestamp.Equal(other.Timestamp) {
		return c.Timestamp.After(other.Timestamp)
	}
	return strings.Compare(c.ID.String(), other.ID.String()) < 0
}

// VitalsQuery describes one ordered range read over a patient's readings.
// At most one of After and Before may be set; neither means the first page.
type VitalsQuery struct {
	PatientID uuid.UUID
	After     *Cursor // readings that sort after this cursor (older)
	Before    *Cursor // readings that sort before this cursor (newer)
	Limit     int
}

// Page is one window of readings, most recent first
type Page struct {
	Readings   []*VitalReading `json:"readings"`
	HasNext    bool            `json:"hasNext"`
	HasPrev    bool            `json:"hasPrev"`
	PageNumber int             `json:"pageNumber"`
	PageSize   int             `json:"pageSize"`
}

// RowNumber returns the 1-based position of the i-th reading across all pages
func (p *Page) RowNumber(i int) int {
	return (p.PageNumber-1)*p.PageSize + i + 1
}
