// SPDX-License-Identifier: MIT

package tracker

import "context"

// Trigger receives the one-time finalized signal for a participant.
// IncrementCompletion calls it only when the atomic script returns
// FINALIZED, which the script guarantees happens at most once per
// session, so implementations need no dedup of their own.
type Trigger interface {
	Finalized(ctx context.Context, tenant, reference string) error
}

// TriggerFunc adapts a plain function to the Trigger interface.
type TriggerFunc func(ctx context.Context, tenant, reference string) error

// Finalized calls f.
func (f TriggerFunc) Finalized(ctx context.Context, tenant, reference string) error {
	return f(ctx, tenant, reference)
}

// NopTrigger discards the finalized signal. Used when no downstream
// fan-out is wired, e.g. in tests.
var NopTrigger = TriggerFunc(func(context.Context, string, string) error { return nil })
