// SPDX-License-Identifier: MIT

package flow

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfoto/intake/internal/keys"
	"github.com/openfoto/intake/internal/store"
)

func setupEventLog(t *testing.T) (*miniredis.Miniredis, *EventLog) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := store.Wrap(rdb, store.Config{
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
		OpTimeout:     time.Second,
	}, zerolog.Nop())

	return mr, NewEventLog(client, zerolog.Nop())
}

func TestEventLog_AppendAndAll(t *testing.T) {
	_, eventLog := setupEventLog(t)
	ctx := context.Background()

	events := []TaskEvent{
		{Task: "upload-processor-0", State: StateStart, Timestamp: 1},
		{Task: "upload-processor-0", State: StateEnd, Timestamp: 5},
		{Task: "fanout-dispatch", State: StateOnce, Timestamp: 6},
	}
	for _, e := range events {
		require.NoError(t, eventLog.Append(ctx, "t1", "r1", e))
	}

	got, err := eventLog.All(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestEventLog_AppendRejectsInvalid(t *testing.T) {
	_, eventLog := setupEventLog(t)
	ctx := context.Background()

	err := eventLog.Append(ctx, "t1", "r1", TaskEvent{State: StateStart})
	require.Error(t, err, "empty task name")

	err = eventLog.Append(ctx, "t1", "r1", TaskEvent{Task: "x", State: State("bogus")})
	require.Error(t, err, "unknown state")
}

func TestEventLog_Window(t *testing.T) {
	_, eventLog := setupEventLog(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		require.NoError(t, eventLog.Append(ctx, "t1", "r1", TaskEvent{
			Task: "validate", State: StateStart, Timestamp: i,
		}))
	}

	window, err := eventLog.Window(ctx, "t1", "r1", 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, int64(3), window[0].Timestamp)
	assert.Equal(t, int64(4), window[1].Timestamp)
}

func TestEventLog_EmptyLog(t *testing.T) {
	_, eventLog := setupEventLog(t)

	events, err := eventLog.All(context.Background(), "t1", "ghost")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventLog_SkipsUndecodableEntries(t *testing.T) {
	mr, eventLog := setupEventLog(t)
	ctx := context.Background()

	require.NoError(t, eventLog.Append(ctx, "t1", "r1", TaskEvent{
		Task: "validate", State: StateEnd, Timestamp: 4,
	}))
	// Corrupt entry written outside the Append path.
	_, err := mr.RPush(keys.Events("t1", "r1"), "{not json")
	require.NoError(t, err)

	events, err := eventLog.All(ctx, "t1", "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "validate", events[0].Task)
}

func TestEventLog_SlotIndexRoundTrip(t *testing.T) {
	_, eventLog := setupEventLog(t)
	ctx := context.Background()

	slot := 2
	require.NoError(t, eventLog.Append(ctx, "t1", "r1", TaskEvent{
		Task: "upload-processor", State: StateEnd, Timestamp: 9,
		Tenant: "t1", Reference: "r1", SlotIndex: &slot,
	}))

	events, err := eventLog.All(ctx, "t1", "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].SlotIndex)
	assert.Equal(t, 2, *events[0].SlotIndex)
}

func TestDispatchTrigger_AppendsOnceEvent(t *testing.T) {
	_, eventLog := setupEventLog(t)
	ctx := context.Background()

	now := time.UnixMilli(1234)
	trigger := DispatchTrigger{Log: eventLog, Clock: func() time.Time { return now }}
	require.NoError(t, trigger.Finalized(ctx, "t1", "r1"))

	events, err := eventLog.All(ctx, "t1", "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, DispatchTaskName, events[0].Task)
	assert.Equal(t, StateOnce, events[0].State)
	assert.Equal(t, int64(1234), events[0].Timestamp)

	// The dispatch shows up as a successful one-shot step.
	steps := Reconstruct(events, Options{})
	require.Len(t, steps, 1)
	assert.Equal(t, StatusSuccess, steps[0].Status)
}
