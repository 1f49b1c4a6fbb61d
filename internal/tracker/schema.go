// SPDX-License-Identifier: MIT

package tracker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Session hash fields. The counting fields (expected, slots, finalized)
// are owned by the atomic completion script; everything else is written
// through narrowly-scoped field updates.
const (
	fieldExpected   = "expected"
	fieldSlots      = "slots"
	fieldFinalized  = "finalized"
	fieldValidated  = "validated"
	fieldArchiveKey = "archive_key"
	fieldSheetKey   = "sheet_key"
	fieldErrors     = "errors"
)

// Slot hash fields.
const (
	fieldSourceKey     = "source_key"
	fieldUploaded      = "uploaded"
	fieldThumbnailKey  = "thumbnail_key"
	fieldExifProcessed = "exif_processed"
)

// Archive progress hash fields.
const (
	fieldProgress = "progress"
	fieldStatus   = "status"
)

// Session is the per-participant completion-tracking record.
type Session struct {
	Expected   int
	Processed  []bool
	Finalized  bool
	Validated  bool
	ArchiveKey string
	SheetKey   string
	Errors     []string
}

// ProcessedCount returns the number of slots marked processed.
func (s *Session) ProcessedCount() int {
	count := 0
	for _, done := range s.Processed {
		if done {
			count++
		}
	}
	return count
}

// Slot is one expected photo's submission record.
type Slot struct {
	Index         int
	SourceKey     string
	Uploaded      bool
	ThumbnailKey  string
	ExifProcessed bool
}

// ArchiveProgress tracks archive packaging for one participant. Its
// lifecycle is independent from the session.
type ArchiveProgress struct {
	Progress   int
	Status     string
	Errors     []string
	ArchiveKey string
}

// SessionUpdate carries narrowly-scoped writes to non-counting session
// fields. Nil fields are left untouched.
type SessionUpdate struct {
	Validated  *bool
	ArchiveKey *string
	SheetKey   *string
}

// SlotUpdate carries writes to slot fields owned by the responsible
// worker. Nil fields are left untouched.
type SlotUpdate struct {
	Uploaded      *bool
	ThumbnailKey  *string
	ExifProcessed *bool
}

func encodeSession(expected int) map[string]any {
	return map[string]any{
		fieldExpected:   strconv.Itoa(expected),
		fieldSlots:      strings.Repeat("0", expected),
		fieldFinalized:  "0",
		fieldValidated:  "0",
		fieldArchiveKey: "",
		fieldSheetKey:   "",
		fieldErrors:     "[]",
	}
}

func decodeSession(record map[string]string) (*Session, error) {
	rawExpected, ok := record[fieldExpected]
	if !ok {
		return nil, fmt.Errorf("session record missing %q field", fieldExpected)
	}
	expected, err := strconv.Atoi(rawExpected)
	if err != nil || expected < 0 {
		return nil, fmt.Errorf("session record has invalid %q: %q", fieldExpected, rawExpected)
	}

	slots, ok := record[fieldSlots]
	if !ok {
		return nil, fmt.Errorf("session record missing %q field", fieldSlots)
	}
	if len(slots) != expected {
		return nil, fmt.Errorf("session record has %d slot markers, expected %d", len(slots), expected)
	}
	processed := make([]bool, expected)
	for i := 0; i < expected; i++ {
		processed[i] = slots[i] == '1'
	}

	session := &Session{
		Expected:   expected,
		Processed:  processed,
		Finalized:  record[fieldFinalized] == "1",
		Validated:  record[fieldValidated] == "1",
		ArchiveKey: record[fieldArchiveKey],
		SheetKey:   record[fieldSheetKey],
		Errors:     decodeErrors(record[fieldErrors]),
	}
	return session, nil
}

func (u SessionUpdate) fields() map[string]any {
	fields := map[string]any{}
	if u.Validated != nil {
		fields[fieldValidated] = encodeBool(*u.Validated)
	}
	if u.ArchiveKey != nil {
		fields[fieldArchiveKey] = *u.ArchiveKey
	}
	if u.SheetKey != nil {
		fields[fieldSheetKey] = *u.SheetKey
	}
	return fields
}

func encodeSlot(sourceKey string) map[string]any {
	return map[string]any{
		fieldSourceKey:     sourceKey,
		fieldUploaded:      "0",
		fieldThumbnailKey:  "",
		fieldExifProcessed: "0",
	}
}

func decodeSlot(index int, record map[string]string) *Slot {
	return &Slot{
		Index:         index,
		SourceKey:     record[fieldSourceKey],
		Uploaded:      record[fieldUploaded] == "1",
		ThumbnailKey:  record[fieldThumbnailKey],
		ExifProcessed: record[fieldExifProcessed] == "1",
	}
}

func (u SlotUpdate) fields() map[string]any {
	fields := map[string]any{}
	if u.Uploaded != nil {
		fields[fieldUploaded] = encodeBool(*u.Uploaded)
	}
	if u.ThumbnailKey != nil {
		fields[fieldThumbnailKey] = *u.ThumbnailKey
	}
	if u.ExifProcessed != nil {
		fields[fieldExifProcessed] = encodeBool(*u.ExifProcessed)
	}
	return fields
}

func decodeArchive(record map[string]string) *ArchiveProgress {
	progress, _ := strconv.Atoi(record[fieldProgress])
	return &ArchiveProgress{
		Progress:   progress,
		Status:     record[fieldStatus],
		Errors:     decodeErrors(record[fieldErrors]),
		ArchiveKey: record[fieldArchiveKey],
	}
}

func decodeErrors(raw string) []string {
	if raw == "" {
		return nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(raw), &errs); err != nil {
		return nil
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func encodeErrors(errs []string) string {
	if len(errs) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
