// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server and a wrapped client.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := Wrap(rdb, Config{
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
		OpTimeout:     time.Second,
	}, zerolog.Nop())

	return mr, client
}

func TestHSetHGetAll(t *testing.T) {
	_, client := setupMiniRedis(t)
	ctx := context.Background()

	err := client.HSet(ctx, "rec", map[string]any{
		"expected":  "3",
		"finalized": "0",
	})
	require.NoError(t, err)

	record, err := client.HGetAll(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"expected": "3", "finalized": "0"}, record)
}

func TestHGetAll_MissingKey(t *testing.T) {
	_, client := setupMiniRedis(t)

	record, err := client.HGetAll(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestHGetAllMulti(t *testing.T) {
	_, client := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "a", map[string]any{"v": "1"}))
	require.NoError(t, client.HSet(ctx, "c", map[string]any{"v": "3"}))

	records, err := client.HGetAllMulti(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0]["v"])
	assert.Empty(t, records[1])
	assert.Equal(t, "3", records[2]["v"])
}

func TestHGetAllMulti_NoKeys(t *testing.T) {
	_, client := setupMiniRedis(t)

	records, err := client.HGetAllMulti(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestHIncrBy(t *testing.T) {
	_, client := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.HIncrBy(ctx, "progress", "count", 1))
	require.NoError(t, client.HIncrBy(ctx, "progress", "count", 4))

	record, err := client.HGetAll(ctx, "progress")
	require.NoError(t, err)
	assert.Equal(t, "5", record["count"])
}

func TestListAppendRange(t *testing.T) {
	_, client := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.ListAppend(ctx, "events", "e1", "e2"))
	require.NoError(t, client.ListAppend(ctx, "events", "e3"))

	all, err := client.ListRange(ctx, "events", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, all)

	tail, err := client.ListRange(ctx, "events", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e3"}, tail)
}

func TestListRange_MissingKey(t *testing.T) {
	_, client := setupMiniRedis(t)

	entries, err := client.ListRange(context.Background(), "nope", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEvalScript(t *testing.T) {
	_, client := setupMiniRedis(t)
	ctx := context.Background()

	script := redis.NewScript(`return redis.call('HSET', KEYS[1], 'v', ARGV[1])`)
	_, err := client.EvalScript(ctx, script, "rec", "42")
	require.NoError(t, err)

	record, err := client.HGetAll(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, "42", record["v"])
}

func TestWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	_, client := setupMiniRedis(t)

	calls := 0
	err := client.withRetry(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	_, client := setupMiniRedis(t)

	calls := 0
	err := client.withRetry(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	_, client := setupMiniRedis(t)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := client.withRetry(ctx, "test", func(context.Context) error {
		calls++
		cancel()
		return assert.AnError
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_DoesNotRetryNil(t *testing.T) {
	_, client := setupMiniRedis(t)

	calls := 0
	err := client.withRetry(context.Background(), "test", func(context.Context) error {
		calls++
		return redis.Nil
	})
	require.ErrorIs(t, err, redis.Nil)
	assert.Equal(t, 1, calls)
}
