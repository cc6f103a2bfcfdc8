// Package resilience retries transient failures with exponential backoff.
// The indexer uses it around catalog registration and index announcements;
// the Redis and Postgres clients use it while connecting at startup.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// ErrGaveUp wraps the last failure once every attempt has been spent or a
// failure was classified as permanent.
var ErrGaveUp = errors.New("retries exhausted")

// RetryConfig controls how often and how patiently an operation is retried.
// Zero fields fall back to 3 attempts, 100ms initial backoff doubling up to
// 10s, with ±10% jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64

	// Retryable decides whether a failure is worth another attempt. Nil
	// retries everything.
	Retryable func(error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

func (cfg RetryConfig) retryable(err error) bool {
	return cfg.Retryable == nil || cfg.Retryable(err)
}

// Retry calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx is done. op names the operation in logs and in the returned error.
func Retry(ctx context.Context, op string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "op", op)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("recovered", "attempts", attempt)
			}
			return nil
		}
		if !cfg.retryable(lastErr) {
			logger.Debug("permanent failure", "attempt", attempt, "error", lastErr)
			return fmt.Errorf("%s: %w: %w", op, ErrGaveUp, lastErr)
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		}

		delay := computeDelay(attempt, cfg)
		logger.Warn("attempt failed",
			"attempt", attempt,
			"of", cfg.MaxAttempts,
			"retry_in_ms", delay.Milliseconds(),
			"error", lastErr,
		)
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted during backoff: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrGaveUp, cfg.MaxAttempts, lastErr)
}

// computeDelay is the jittered backoff before attempt+1, capped at MaxDelay.
func computeDelay(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	backoff += backoff * cfg.JitterFraction * (2*rand.Float64() - 1)
	if backoff > float64(cfg.MaxDelay) {
		backoff = float64(cfg.MaxDelay)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialDelay)
	}
	return time.Duration(backoff)
}
