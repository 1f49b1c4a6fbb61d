// SPDX-License-Identifier: MIT

package flow

import (
	"context"
	"time"
)

// DispatchTaskName is the event log task name of the downstream fan-out
// dispatch. It is a fire-and-forget unit, so it emits a single once
// event and never an end.
const DispatchTaskName = "fanout-dispatch"

// DispatchTrigger records the one-time fan-out dispatch as a once event
// on the participant's event log. It satisfies the completion tracker's
// Trigger interface.
type DispatchTrigger struct {
	Log   *EventLog
	Clock func() time.Time // defaults to time.Now
}

// Finalized appends the dispatch event for the participant.
func (d DispatchTrigger) Finalized(ctx context.Context, tenant, reference string) error {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	return d.Log.Append(ctx, tenant, reference, TaskEvent{
		Task:      DispatchTaskName,
		State:     StateOnce,
		Timestamp: clock().UnixMilli(),
		Tenant:    tenant,
		Reference: reference,
	})
}
