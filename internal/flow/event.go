// SPDX-License-Identifier: MIT

// Package flow reconstructs a human-readable pipeline status from the
// unordered, possibly incomplete log of task lifecycle events.
//
// Events are immutable facts; everything this package derives from
// them is an ephemeral view recomputed per call, never stored.
package flow

import (
	"encoding/json"
	"fmt"
)

// State classifies one lifecycle event of a task.
type State string

const (
	// StateStart opens a retryable unit of work.
	StateStart State = "start"

	// StateEnd closes a unit of work, successfully or with an error.
	StateEnd State = "end"

	// StateOnce marks a fire-and-forget unit that never emits an end,
	// e.g. a bus trigger.
	StateOnce State = "once"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks whether the state is one of the defined constants.
func (s State) IsValid() bool {
	switch s {
	case StateStart, StateEnd, StateOnce:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for State.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for State.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state := State(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid task event state: %q", str)
	}
	*s = state
	return nil
}

// ParseState parses a string into a State, returning an error if invalid.
func ParseState(s string) (State, error) {
	state := State(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid task event state: %q (valid: start, end, once)", s)
	}
	return state, nil
}

// TaskEvent is one immutable lifecycle fact emitted by a worker or job.
type TaskEvent struct {
	Task       string `json:"task"`
	State      State  `json:"state"`
	Timestamp  int64  `json:"ts"` // unix milliseconds
	DurationMs *int64 `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
	Tenant     string `json:"tenant,omitempty"`
	Reference  string `json:"reference,omitempty"`
	SlotIndex  *int   `json:"slot_index,omitempty"` // 0-based
}

// Validate checks the fields that make an event usable at all.
func (e TaskEvent) Validate() error {
	if e.Task == "" {
		return fmt.Errorf("task event has empty task name")
	}
	if !e.State.IsValid() {
		return fmt.Errorf("task event %q has invalid state %q", e.Task, e.State)
	}
	return nil
}
