// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldTenant    = "tenant"
	FieldReference = "reference"
	FieldSlot      = "slot"

	// Process / pipeline fields
	FieldComponent = "component"
	FieldTask      = "task"
	FieldState     = "state"
	FieldOutcome   = "outcome"
	FieldAttempt   = "attempt"

	// Store fields
	FieldKey = "key"
)
