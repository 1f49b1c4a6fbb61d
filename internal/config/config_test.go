// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "upload-processor", cfg.WorkerTaskPrefix)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("INTAKE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("INTAKE_RETRY_ATTEMPTS", "5")
	t.Setenv("INTAKE_RETRY_BACKOFF", "250ms")
	t.Setenv("INTAKE_RATELIMIT_ENABLED", "false")

	cfg := FromEnv()

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INTAKE_RETRY_ATTEMPTS", "not-a-number")
	t.Setenv("INTAKE_RETRY_BACKOFF", "soon")
	t.Setenv("INTAKE_RATELIMIT_ENABLED", "yes-please")

	cfg := FromEnv()

	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestValidate(t *testing.T) {
	valid := FromEnv()

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *AppConfig) {},
			wantErr: "",
		},
		{
			name:    "empty redis address",
			mutate:  func(c *AppConfig) { c.RedisAddr = " " },
			wantErr: "redis address",
		},
		{
			name:    "empty listen address",
			mutate:  func(c *AppConfig) { c.ListenAddr = "" },
			wantErr: "listen address",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *AppConfig) { c.RetryAttempts = 0 },
			wantErr: "retry attempts",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *AppConfig) { c.RetryBackoff = -time.Second },
			wantErr: "retry backoff",
		},
		{
			name:    "zero op timeout",
			mutate:  func(c *AppConfig) { c.OpTimeout = 0 },
			wantErr: "operation timeout",
		},
		{
			name:    "rate limit enabled with zero rpm",
			mutate:  func(c *AppConfig) { c.RateLimitRPM = 0 },
			wantErr: "rate limit",
		},
		{
			name:    "empty worker prefix",
			mutate:  func(c *AppConfig) { c.WorkerTaskPrefix = "" },
			wantErr: "worker task prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
