// SPDX-License-Identifier: MIT

package tracker

import (
	"encoding/json"
	"fmt"
)

// Outcome is the result code of the atomic completion script.
//
// The six codes form a closed set; the script returns exactly one of
// them per invocation and callers handle each code explicitly.
type Outcome string

const (
	// OutcomeProcessed indicates the slot was marked processed and more
	// slots are still pending.
	OutcomeProcessed Outcome = "PROCESSED_SUBMISSION"

	// OutcomeFinalized indicates this call completed the last pending
	// slot. At most one call per session ever observes this code.
	OutcomeFinalized Outcome = "FINALIZED"

	// OutcomeDuplicate indicates the slot was already marked processed.
	// Expected under at-least-once delivery and safe to ignore.
	OutcomeDuplicate Outcome = "DUPLICATE_ORDER_INDEX"

	// OutcomeAlreadyFinalized indicates the session finalized before
	// this call arrived. Expected for late or duplicate deliveries.
	OutcomeAlreadyFinalized Outcome = "ALREADY_FINALIZED"

	// OutcomeInvalidIndex indicates the slot index is outside the
	// declared range. Always a caller bug.
	OutcomeInvalidIndex Outcome = "INVALID_ORDER_INDEX"

	// OutcomeMissingData indicates the session record is absent or
	// missing required fields.
	OutcomeMissingData Outcome = "MISSING_DATA"
)

// String returns the literal outcome code.
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks whether the outcome is one of the defined codes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeProcessed, OutcomeFinalized, OutcomeDuplicate,
		OutcomeAlreadyFinalized, OutcomeInvalidIndex, OutcomeMissingData:
		return true
	default:
		return false
	}
}

// IsBenignRace reports whether the outcome is an expected effect of
// duplicate or late delivery rather than an error.
func (o Outcome) IsBenignRace() bool {
	return o == OutcomeDuplicate || o == OutcomeAlreadyFinalized
}

// IsFatal reports whether the outcome indicates a protocol or
// invariant violation that cannot succeed on retry.
func (o Outcome) IsFatal() bool {
	return o == OutcomeInvalidIndex || o == OutcomeMissingData
}

// MarshalJSON implements json.Marshaler for Outcome.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// UnmarshalJSON implements json.Unmarshaler for Outcome.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseOutcome(str)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome parses a script return value into an Outcome, returning
// an error for anything outside the closed set.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.IsValid() {
		return "", fmt.Errorf("unknown completion outcome: %q", s)
	}
	return o, nil
}
