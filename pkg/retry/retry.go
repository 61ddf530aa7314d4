// Package retry provides a generic bounded-retry executor used for
// revision-conflicted ledger commits and transient sourcing calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hirewire/outreach/pkg/taxonomy"
)

// Strategy defines retry strategy interface
type Strategy interface {
	NextDelay(attempt int) time.Duration
	ShouldRetry(attempt int, err error) bool
}

// Config defines retry configuration
type Config struct {
	MaxAttempts int
	Strategy    Strategy
	Jitter      float64
	OnRetry     func(attempt int, err error)
}

// ExponentialBackoff implements exponential backoff strategy
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NextDelay calculates next delay for exponential backoff
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(e.InitialDelay) * math.Pow(e.Multiplier, float64(attempt))
	if delay > float64(e.MaxDelay) {
		return e.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry determines if retry should continue
func (e *ExponentialBackoff) ShouldRetry(attempt int, err error) bool {
	var coded *taxonomy.Error
	if errors.As(err, &coded) {
		return coded.ShouldRetry()
	}
	return true
}

// LinearBackoff implements linear backoff strategy
type LinearBackoff struct {
	Delay       time.Duration
	MaxAttempts int
}

// NextDelay returns constant delay for linear backoff
func (l *LinearBackoff) NextDelay(attempt int) time.Duration {
	return l.Delay
}

// ShouldRetry determines if retry should continue
func (l *LinearBackoff) ShouldRetry(attempt int, err error) bool {
	if attempt >= l.MaxAttempts {
		return false
	}
	var coded *taxonomy.Error
	if errors.As(err, &coded) {
		return coded.ShouldRetry()
	}
	return true
}

// Do executes operation with retry logic.
func Do[T any](ctx context.Context, operation func() (T, error), config Config) (T, error) {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := operation()
		if err == nil {
			return result, nil
		}

		if !config.Strategy.ShouldRetry(attempt, err) {
			return result, err
		}

		delay := config.Strategy.NextDelay(attempt)
		if config.Jitter > 0 {
			delay = applyJitter(delay, config.Jitter)
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		lastErr = err
	}

	var zero T
	return zero, fmt.Errorf("max retries (%d) exceeded: %w", config.MaxAttempts, lastErr)
}

// applyJitter adds random jitter to delay
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	jitter := float64(delay) * jitterFactor
	randomJitter := (rand.Float64() - 0.5) * 2 * jitter
	finalDelay := float64(delay) + randomJitter

	if finalDelay < 0 {
		return 0
	}
	return time.Duration(finalDelay)
}

// Defaults provides pre-configured retry configurations.
var Defaults = struct {
	Commit   Config
	Sourcing Config
}{
	// Commit covers the bounded PersistenceConflict budget: re-read and
	// re-apply quickly, give up after three attempts.
	Commit: Config{
		MaxAttempts: 3,
		Strategy: &LinearBackoff{
			Delay:       25 * time.Millisecond,
			MaxAttempts: 3,
		},
		Jitter: 0.2,
	},
	Sourcing: Config{
		MaxAttempts: 4,
		Strategy: &ExponentialBackoff{
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
		Jitter: 0.2,
	},
}
