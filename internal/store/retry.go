// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openfoto/intake/internal/metrics"
)

// withRetry runs fn with a per-attempt timeout and exponential backoff.
// The final error is returned once attempts are exhausted; callers on
// the read path may degrade it to an absent result.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			metrics.IncStoreRetry(op)
			backoff := c.backoff << (attempt - 2)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		// The caller gave up; a per-attempt timeout alone is retryable.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) {
			return err
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Msg("transient store error")
	}

	metrics.IncStoreFailure(op)
	return lastErr
}

// isTransient reports whether an error is worth retrying. redis.Nil and
// caller cancellation are terminal; everything else (network, attempt
// timeout, server errors) is treated as transient.
func isTransient(err error) bool {
	if errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
