// SPDX-License-Identifier: MIT

// Package config loads and validates the intaked service configuration
// from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// AppConfig holds the full service configuration.
type AppConfig struct {
	// HTTP
	ListenAddr string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Store retry policy
	RetryAttempts int
	RetryBackoff  time.Duration
	OpTimeout     time.Duration

	// Rate limiting for mutating API routes
	RateLimitEnabled bool
	RateLimitRPM     int

	// Task name prefix identifying the per-photo worker family
	// in the pipeline event log.
	WorkerTaskPrefix string

	// Logging
	LogLevel string
}

// FromEnv assembles an AppConfig from environment variables, applying
// defaults for anything unset.
func FromEnv() AppConfig {
	return AppConfig{
		ListenAddr:       ParseString("INTAKE_LISTEN", ":8080"),
		RedisAddr:        ParseString("INTAKE_REDIS_ADDR", "localhost:6379"),
		RedisPassword:    ParseString("INTAKE_REDIS_PASSWORD", ""),
		RedisDB:          ParseInt("INTAKE_REDIS_DB", 0),
		RetryAttempts:    ParseInt("INTAKE_RETRY_ATTEMPTS", 3),
		RetryBackoff:     ParseDuration("INTAKE_RETRY_BACKOFF", 100*time.Millisecond),
		OpTimeout:        ParseDuration("INTAKE_OP_TIMEOUT", 3*time.Second),
		RateLimitEnabled: ParseBool("INTAKE_RATELIMIT_ENABLED", true),
		RateLimitRPM:     ParseInt("INTAKE_RATELIMIT_RPM", 600),
		WorkerTaskPrefix: ParseString("INTAKE_WORKER_TASK_PREFIX", "upload-processor"),
		LogLevel:         ParseString("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration for values that cannot work at runtime.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("config: redis address must not be empty")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("config: retry attempts must be >= 1, got %d", c.RetryAttempts)
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("config: retry backoff must be positive, got %s", c.RetryBackoff)
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("config: operation timeout must be positive, got %s", c.OpTimeout)
	}
	if c.RateLimitEnabled && c.RateLimitRPM < 1 {
		return fmt.Errorf("config: rate limit must be >= 1 rpm when enabled, got %d", c.RateLimitRPM)
	}
	if strings.TrimSpace(c.WorkerTaskPrefix) == "" {
		return fmt.Errorf("config: worker task prefix must not be empty")
	}
	return nil
}
