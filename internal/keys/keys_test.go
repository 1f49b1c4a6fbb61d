// SPDX-License-Identifier: MIT

package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "intake:club-a:p-42:session", Session("club-a", "p-42"))
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "intake:club-a:p-42:slot:0", Slot("club-a", "p-42", 0))
	assert.Equal(t, "intake:club-a:p-42:slot:11", Slot("club-a", "p-42", 11))
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "intake:club-a:p-42:archive", Archive("club-a", "p-42"))
}

func TestEventsKey(t *testing.T) {
	assert.Equal(t, "intake:club-a:p-42:events", Events("club-a", "p-42"))
}

func TestSanitize(t *testing.T) {
	// Separators inside identifiers must not break the schema.
	assert.Equal(t, "intake:a-b:c-d:session", Session("a:b", "c:d"))
}

func TestSlotIndexFromKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want int
	}{
		{"first slot", Slot("t", "r", 0), 0},
		{"high slot", Slot("t", "r", 37), 37},
		{"session key", Session("t", "r"), -1},
		{"events key", Events("t", "r"), -1},
		{"garbage", "not-a-key", -1},
		{"negative index", "intake:t:r:slot:-3", -1},
		{"non-numeric index", "intake:t:r:slot:abc", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlotIndexFromKey(tt.key))
		})
	}
}

func TestKeysAreDistinct(t *testing.T) {
	seen := map[string]bool{
		Session("t", "r"):  true,
		Slot("t", "r", 0):  true,
		Slot("t", "r", 1):  true,
		Archive("t", "r"):  true,
		Events("t", "r"):   true,
		Session("t", "r2"): true,
	}
	assert.Len(t, seen, 6)
}
