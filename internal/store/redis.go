// SPDX-License-Identifier: MIT

// Package store provides a thin, retrying client over Redis for the
// intake state records: hash get/set, pipelined multi-key reads,
// append-only lists and evaluation of the atomic completion script.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config holds Redis connection and retry configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number

	RetryAttempts int           // max attempts per operation (>= 1)
	RetryBackoff  time.Duration // base backoff, doubled per attempt
	OpTimeout     time.Duration // per-attempt timeout
}

// Client wraps *redis.Client with per-operation timeouts and the
// service retry policy.
type Client struct {
	rdb    *redis.Client
	logger zerolog.Logger

	attempts  int
	backoff   time.Duration
	opTimeout time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis state store")

	return Wrap(rdb, cfg, logger), nil
}

// Wrap builds a Client around an existing connection. Used by tests to
// wrap a miniredis-backed client.
func Wrap(rdb *redis.Client, cfg Config, logger zerolog.Logger) *Client {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	return &Client{
		rdb:       rdb,
		logger:    logger,
		attempts:  attempts,
		backoff:   backoff,
		opTimeout: opTimeout,
	}
}

// HGetAll reads all fields of a hash record. A missing key yields an
// empty map and no error.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var record map[string]string
	err := c.withRetry(ctx, "hgetall", func(ctx context.Context) error {
		res, err := c.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		record = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return record, nil
}

// HSet writes the given fields into a hash record.
func (c *Client) HSet(ctx context.Context, key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := c.withRetry(ctx, "hset", func(ctx context.Context) error {
		return c.rdb.HSet(ctx, key, fields).Err()
	})
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// HIncrBy atomically increments an integer hash field.
func (c *Client) HIncrBy(ctx context.Context, key, field string, delta int64) error {
	err := c.withRetry(ctx, "hincrby", func(ctx context.Context) error {
		return c.rdb.HIncrBy(ctx, key, field, delta).Err()
	})
	if err != nil {
		return fmt.Errorf("hincrby %s %s: %w", key, field, err)
	}
	return nil
}

// HGetAllMulti reads several hash records in one pipelined round trip.
// The result slice is positionally aligned with keys; missing records
// appear as empty maps.
func (c *Client) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var records []map[string]string
	err := c.withRetry(ctx, "hgetall_multi", func(ctx context.Context) error {
		pipe := c.rdb.Pipeline()
		cmds := make([]*redis.MapStringStringCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		records = make([]map[string]string, len(keys))
		for i, cmd := range cmds {
			records[i] = cmd.Val()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hgetall multi (%d keys): %w", len(keys), err)
	}
	return records, nil
}

// ListAppend appends values to the tail of an append-only list.
func (c *Client) ListAppend(ctx context.Context, key string, values ...any) error {
	if len(values) == 0 {
		return nil
	}
	err := c.withRetry(ctx, "rpush", func(ctx context.Context) error {
		return c.rdb.RPush(ctx, key, values...).Err()
	})
	if err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// ListRange reads the inclusive range [start, stop] of a list.
// Negative indices count from the tail, as in Redis.
func (c *Client) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var entries []string
	err := c.withRetry(ctx, "lrange", func(ctx context.Context) error {
		res, err := c.rdb.LRange(ctx, key, start, stop).Result()
		if err != nil {
			return err
		}
		entries = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	return entries, nil
}

// EvalScript runs a server-side script against one key. Script.Run uses
// EVALSHA with an automatic EVAL fallback when the script is not cached.
func (c *Client) EvalScript(ctx context.Context, script *redis.Script, key string, args ...any) (any, error) {
	var result any
	err := c.withRetry(ctx, "eval", func(ctx context.Context) error {
		res, err := script.Run(ctx, c.rdb, []string{key}, args...).Result()
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("eval on %s: %w", key, err)
	}
	return result, nil
}

// Ping checks store availability.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
