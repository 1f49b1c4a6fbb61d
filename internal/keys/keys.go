// SPDX-License-Identifier: MIT

// Package keys defines the deterministic Redis key schema for
// participant sessions, submission slots, archive progress records
// and the per-participant pipeline event log.
//
// All keys share the "intake:" namespace. Slot indices are 0-based
// throughout; display code converts to 1-based slot numbers at the
// presentation boundary only.
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

const namespace = "intake"

// Session returns the key of the participant session hash.
func Session(tenant, reference string) string {
	return fmt.Sprintf("%s:%s:%s:session", namespace, sanitize(tenant), sanitize(reference))
}

// Slot returns the key of one submission slot hash.
func Slot(tenant, reference string, index int) string {
	return fmt.Sprintf("%s:%s:%s:slot:%d", namespace, sanitize(tenant), sanitize(reference), index)
}

// Archive returns the key of the archive progress hash.
func Archive(tenant, reference string) string {
	return fmt.Sprintf("%s:%s:%s:archive", namespace, sanitize(tenant), sanitize(reference))
}

// Events returns the key of the append-only task event list.
func Events(tenant, reference string) string {
	return fmt.Sprintf("%s:%s:%s:events", namespace, sanitize(tenant), sanitize(reference))
}

// SlotIndexFromKey parses the trailing 0-based index from a slot key.
// Returns -1 when the key does not name a slot.
func SlotIndexFromKey(key string) int {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || parts[len(parts)-2] != "slot" {
		return -1
	}
	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || idx < 0 {
		return -1
	}
	return idx
}

// sanitize strips the key separator from caller-supplied identifiers so
// a tenant or reference cannot collide with the schema structure.
func sanitize(s string) string {
	return strings.ReplaceAll(s, ":", "-")
}
