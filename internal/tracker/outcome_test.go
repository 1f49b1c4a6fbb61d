// SPDX-License-Identifier: MIT

package tracker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Classification(t *testing.T) {
	tests := []struct {
		outcome Outcome
		valid   bool
		benign  bool
		fatal   bool
	}{
		{OutcomeProcessed, true, false, false},
		{OutcomeFinalized, true, false, false},
		{OutcomeDuplicate, true, true, false},
		{OutcomeAlreadyFinalized, true, true, false},
		{OutcomeInvalidIndex, true, false, true},
		{OutcomeMissingData, true, false, true},
		{Outcome("SOMETHING_NEW"), false, false, false},
		{Outcome(""), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.outcome.IsValid())
			assert.Equal(t, tt.benign, tt.outcome.IsBenignRace())
			assert.Equal(t, tt.fatal, tt.outcome.IsFatal())
		})
	}
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("FINALIZED")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, o)

	_, err = ParseOutcome("finalized")
	require.Error(t, err, "codes are case sensitive")

	_, err = ParseOutcome("UNKNOWN_CODE")
	require.Error(t, err)
}

func TestOutcome_JSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(OutcomeDuplicate)
	require.NoError(t, err)
	assert.Equal(t, `"DUPLICATE_ORDER_INDEX"`, string(raw))

	var o Outcome
	require.NoError(t, json.Unmarshal(raw, &o))
	assert.Equal(t, OutcomeDuplicate, o)

	err = json.Unmarshal([]byte(`"NOT_A_CODE"`), &o)
	require.Error(t, err)
}
