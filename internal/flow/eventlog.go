// SPDX-License-Identifier: MIT

package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfoto/intake/internal/keys"
	"github.com/openfoto/intake/internal/metrics"
	"github.com/openfoto/intake/internal/store"
)

// EventLog is the append-only per-participant task event log. Events
// are JSON-encoded onto a Redis list; they are written once and never
// mutated.
type EventLog struct {
	store  *store.Client
	logger zerolog.Logger
}

// NewEventLog builds an EventLog over the state store.
func NewEventLog(st *store.Client, logger zerolog.Logger) *EventLog {
	return &EventLog{store: st, logger: logger}
}

// Append validates and appends one event.
func (l *EventLog) Append(ctx context.Context, tenant, reference string, event TaskEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("append event %q: %w", event.Task, err)
	}
	if err := l.store.ListAppend(ctx, keys.Events(tenant, reference), string(raw)); err != nil {
		return fmt.Errorf("append event %q: %w", event.Task, err)
	}
	metrics.IncEventAppend(event.State.String())
	return nil
}

// All reads the full event log of a participant.
func (l *EventLog) All(ctx context.Context, tenant, reference string) ([]TaskEvent, error) {
	return l.window(ctx, tenant, reference, 0)
}

// Window reads the most recent limit events. limit <= 0 reads all.
func (l *EventLog) Window(ctx context.Context, tenant, reference string, limit int) ([]TaskEvent, error) {
	return l.window(ctx, tenant, reference, limit)
}

func (l *EventLog) window(ctx context.Context, tenant, reference string, limit int) ([]TaskEvent, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	entries, err := l.store.ListRange(ctx, keys.Events(tenant, reference), start, -1)
	if err != nil {
		return nil, fmt.Errorf("read event log for %s/%s: %w", tenant, reference, err)
	}
	events := make([]TaskEvent, 0, len(entries))
	for _, entry := range entries {
		var event TaskEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			// A bad entry degrades the view, never the call.
			l.logger.Warn().Err(err).
				Str("tenant", tenant).
				Str("reference", reference).
				Msg("skipping undecodable task event")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
