// Package retry wraps collaborator calls with exponential-backoff retry.
// It is parameterized by an error-classification function so each caller
// decides which failures are transient; the waiting machinery stays in one
// place instead of being inlined at every call site.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Class is the retry classification of one error.
type Class int8

const (
	// Permanent errors fail immediately without further attempts.
	Permanent Class = iota

	// Transient errors are retried with backoff up to the attempt bound.
	Transient
)

// Classifier decides whether an error is worth retrying.
// A nil error never reaches the classifier.
type Classifier func(error) Class

// Config bounds the retry loop.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// Factor multiplies the backoff after each attempt.
	Factor float64

	// Jitter is the maximum random deviation as a fraction of the wait,
	// in [0, 1]. It spreads simultaneous retries apart.
	Jitter float64
}

// DefaultConfig returns the retry bounds used for git and backend calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Factor:         2.0,
		Jitter:         0.2,
	}
}

// normalized fills unset fields so a zero Config still behaves sanely.
func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.Factor < 1.0 {
		c.Factor = 2.0
	}
	return c
}

// Do executes fn, retrying transient failures with exponential backoff.
// It returns the number of attempts made and the last error (nil on
// success). Waits are context-aware: cancellation during a wait returns
// the context error immediately.
func Do(ctx context.Context, cfg Config, classify Classifier, fn func(context.Context) error) (int, error) {
	cfg = cfg.normalized()

	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}

		if classify == nil || classify(lastErr) == Permanent {
			return attempt, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(withJitter(backoff, cfg.Jitter)):
		}

		backoff = time.Duration(float64(backoff) * cfg.Factor)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return cfg.MaxAttempts, lastErr
}

// withJitter spreads the wait into [base*(1-jitter), base*(1+jitter)].
func withJitter(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	spread := (rand.Float64()*2 - 1) * jitter
	return time.Duration(float64(base) * (1 + spread))
}
