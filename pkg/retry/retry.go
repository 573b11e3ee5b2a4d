// Package retry runs operations under a bounded exponential backoff policy.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// jitterFraction is the symmetric jitter applied to each computed delay.
const jitterFraction = 0.1

// Config describes one backoff policy.
type Config struct {
	// MaxAttempts bounds the total number of tries, the first one included.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// Multiplier grows the wait after every failed attempt.
	Multiplier float64
	// RetryableErrors holds substrings matched case-insensitively against
	// error text. Empty means every error is retryable.
	RetryableErrors []string
}

// DefaultConfig returns the policy used where nothing more specific applies.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// PostgresConfig returns the default policy restricted to transient
// PostgreSQL connection failures.
func PostgresConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryableErrors = DefaultPostgresRetryableErrors()
	return cfg
}

// DefaultPostgresRetryableErrors lists error text seen while PostgreSQL is
// unreachable or still starting up.
func DefaultPostgresRetryableErrors() []string {
	return []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"i/o timeout",
		"dial tcp",
		"network is unreachable",
		"no connection could be made",
		"server closed the connection",
		"too many connections",
		"database system is starting up",
	}
}

// Do runs fn under the policy until it succeeds, fails terminally, or the
// attempt budget is spent.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult runs fn under the policy and returns its result. The error
// from the last attempt is returned when the budget runs out; a
// non-retryable error returns immediately.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		return zero, fmt.Errorf("MaxAttempts must be greater than 0")
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRetryableError(err, cfg) {
			return zero, err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(jittered(clamp(delay, cfg.MaxDelay))):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return zero, lastErr
}

// IsRetryableError reports whether err matches the policy's retryable set.
func IsRetryableError(err error, cfg Config) bool {
	if err == nil {
		return false
	}
	if len(cfg.RetryableErrors) == 0 {
		return true
	}

	text := strings.ToLower(err.Error())
	for _, pattern := range cfg.RetryableErrors {
		if strings.Contains(text, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func clamp(delay, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// jittered spreads a delay by ±jitterFraction so concurrent retriers do not
// wake in lockstep.
func jittered(delay time.Duration) time.Duration {
	//nolint:gosec // jitter needs no cryptographic randomness
	offset := float64(delay) * jitterFraction * (rand.Float64()*2 - 1)
	return delay + time.Duration(offset)
}
