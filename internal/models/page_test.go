package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_EncodeDecode(t *testing.T) {
	cursor := Cursor{
		Timestamp: time.Date(2026, 10, 19, 8, 30, 15, 123456000, time.UTC),
		ID:        uuid.MustParse("0b6f8e3a-2f59-4c1d-9b1e-5f2d7c3a9e10"),
	}

	encoded := cursor.Encode()
	assert.NotContains(t, encoded, "|", "cursor must be opaque")

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, cursor.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"missing separator", "bm8tc2VwYXJhdG9y"},
		{"bad timestamp", "eWVzdGVyZGF5fDBiNmY4ZTNhLTJmNTktNGMxZC05YjFlLTVmMmQ3YzNhOWUxMA"},
		{"bad id", "MjAyNi0xMC0xOVQwODozMDoxNVp8bm90LWEtdXVpZA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.input)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestCursor_Precedes(t *testing.T) {
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	newer := Cursor{Timestamp: base.Add(time.Second), ID: high}
	older := Cursor{Timestamp: base, ID: low}
	assert.True(t, newer.Precedes(older))
	assert.False(t, older.Precedes(newer))

	// Equal timestamps fall back to id ascending
	a := Cursor{Timestamp: base, ID: low}
	b := Cursor{Timestamp: base, ID: high}
	assert.True(t, a.Precedes(b))
	assert.False(t, b.Precedes(a))
	assert.False(t, a.Precedes(a))
}

func TestPage_RowNumber(t *testing.T) {
	page := &Page{PageNumber: 3, PageSize: 20}
	assert.Equal(t, 41, page.RowNumber(0))
	assert.Equal(t, 45, page.RowNumber(4))

	first := &Page{PageNumber: 1, PageSize: 20}
	assert.Equal(t, 1, first.RowNumber(0))
}
