// Package retry re-runs calls that fail with transient errors, backing off
// exponentially between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of attempts after the first one (default 3).
	MaxRetries int

	// InitialBackoff is the wait before the first retry (default 200ms).
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait, including server-requested ones
	// (default 10s).
	MaxBackoff time.Duration

	// Multiplier grows the backoff after each retry (default 2).
	Multiplier float64

	// Jitter randomizes each wait by +/- this fraction (default 0.1).
	Jitter float64

	// IsRetryable decides whether err is worth another attempt.
	// Defaults to DefaultIsRetryable.
	IsRetryable func(error) bool

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns a Config with the defaults applied.
func DefaultConfig() Config {
	return withDefaults(Config{MaxRetries: 3})
}

var (
	// ErrNotRetryable is matched by a RetryError that stopped on a permanent error.
	ErrNotRetryable = errors.New("retry: error is not retryable")

	// ErrMaxRetries is matched by a RetryError that ran out of attempts.
	ErrMaxRetries = errors.New("retry: max retries exceeded")

	// ErrContextCanceled is matched by a RetryError interrupted by its context.
	ErrContextCanceled = errors.New("retry: context canceled")
)

// Delayer is implemented by errors that carry a server-requested wait,
// such as an HTTP Retry-After header.
type Delayer interface {
	RetryDelay() time.Duration
}

// Do runs fn until it succeeds, returns a permanent error, the context ends
// or the attempts run out. A failure after the first attempt is reported as
// a *RetryError wrapping the last error.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = withDefaults(cfg)

	var last error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				return err
			}
			return &RetryError{Cause: last, Attempts: attempt, Err: ErrContextCanceled}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err

		if !cfg.IsRetryable(err) {
			if attempt == 0 {
				return err
			}
			return &RetryError{Cause: err, Attempts: attempt + 1, Err: ErrNotRetryable}
		}
		if attempt >= cfg.MaxRetries {
			return &RetryError{Cause: err, Attempts: attempt + 1, Err: ErrMaxRetries}
		}

		wait := cfg.wait(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &RetryError{Cause: err, Attempts: attempt + 1, Err: ErrContextCanceled}
		case <-timer.C:
		}
	}
}

// DoWithResult is Do for functions returning a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// RetryError describes a call that failed after retrying.
type RetryError struct {
	// Cause is the last error returned by the function.
	Cause error
	// Attempts is how many times the function ran.
	Attempts int
	// Err is ErrMaxRetries, ErrNotRetryable or ErrContextCanceled.
	Err error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts (%s): %s", e.Attempts, e.Err, e.Cause)
}

func (e *RetryError) Unwrap() error {
	return e.Cause
}

func (e *RetryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wait returns the delay before retry number attempt+1. A Delayer error
// overrides the computed backoff, bounded by MaxBackoff.
func (cfg Config) wait(attempt int, err error) time.Duration {
	var d Delayer
	if errors.As(err, &d) {
		if w := d.RetryDelay(); w > 0 {
			return min(w, cfg.MaxBackoff)
		}
	}

	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	backoff = math.Min(backoff, float64(cfg.MaxBackoff))
	if cfg.Jitter > 0 {
		spread := backoff * cfg.Jitter
		backoff += (rand.Float64()*2 - 1) * spread
	}
	return time.Duration(backoff)
}

func withDefaults(cfg Config) Config {
	cfg.MaxRetries = max(cfg.MaxRetries, 0)
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	cfg.Jitter = min(max(cfg.Jitter, 0), 1)
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = DefaultIsRetryable
	}
	return cfg
}

// DefaultIsRetryable retries errors that say they are retryable through a
// Retryable() bool method, and nothing else. Context errors are never
// retried.
func DefaultIsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err}
}

type transientError struct{ error }

func (e *transientError) Unwrap() error   { return e.error }
func (e *transientError) Retryable() bool { return true }
