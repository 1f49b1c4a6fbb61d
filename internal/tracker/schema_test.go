// SPDX-License-Identifier: MIT

package tracker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSession(t *testing.T) {
	record := map[string]string{
		"expected":    "4",
		"slots":       "1010",
		"finalized":   "0",
		"validated":   "1",
		"archive_key": "archives/a.zip",
		"sheet_key":   "",
		"errors":      `["boom"]`,
	}

	session, err := decodeSession(record)
	require.NoError(t, err)
	assert.Equal(t, 4, session.Expected)
	assert.Equal(t, []bool{true, false, true, false}, session.Processed)
	assert.Equal(t, 2, session.ProcessedCount())
	assert.False(t, session.Finalized)
	assert.True(t, session.Validated)
	assert.Equal(t, "archives/a.zip", session.ArchiveKey)
	assert.Equal(t, []string{"boom"}, session.Errors)
}

func TestDecodeSession_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]string
	}{
		{"missing expected", map[string]string{"slots": "00"}},
		{"missing slots", map[string]string{"expected": "2"}},
		{"non-numeric expected", map[string]string{"expected": "two", "slots": "00"}},
		{"negative expected", map[string]string{"expected": "-1", "slots": ""}},
		{"slot length mismatch", map[string]string{"expected": "3", "slots": "00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSession(tt.record)
			require.Error(t, err)
		})
	}
}

func TestEncodeSession(t *testing.T) {
	fields := encodeSession(5)
	assert.Equal(t, "5", fields["expected"])
	assert.Equal(t, strings.Repeat("0", 5), fields["slots"])
	assert.Equal(t, "0", fields["finalized"])
	assert.Equal(t, "[]", fields["errors"])
}

func TestSessionUpdate_Fields(t *testing.T) {
	assert.Empty(t, SessionUpdate{}.fields())

	validated := false
	sheet := "sheets/s.jpg"
	fields := SessionUpdate{Validated: &validated, SheetKey: &sheet}.fields()
	assert.Equal(t, map[string]any{
		"validated": "0",
		"sheet_key": "sheets/s.jpg",
	}, fields)
}

func TestSlotUpdate_Fields(t *testing.T) {
	assert.Empty(t, SlotUpdate{}.fields())

	uploaded := true
	fields := SlotUpdate{Uploaded: &uploaded}.fields()
	assert.Equal(t, map[string]any{"uploaded": "1"}, fields)
}

func TestErrorsRoundTrip(t *testing.T) {
	assert.Nil(t, decodeErrors(""))
	assert.Nil(t, decodeErrors("[]"))
	assert.Nil(t, decodeErrors("not-json"))
	assert.Equal(t, []string{"a", "b"}, decodeErrors(`["a","b"]`))

	assert.Equal(t, "[]", encodeErrors(nil))
	assert.Equal(t, `["x"]`, encodeErrors([]string{"x"}))
}
