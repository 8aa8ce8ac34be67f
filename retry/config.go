// Package retry implements bounded exponential backoff for the transient
// failures the pipeline error taxonomy marks retryable.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Config tunes the backoff schedule. Every node retries inside a single
// request's wall-clock budget, so the defaults are deliberately small.
type Config struct {
	// MaxAttempts counts the initial call: 3 means at most two retries.
	// Values below 1 behave like a single attempt.
	MaxAttempts int

	// InitialDelay seeds the schedule.
	InitialDelay time.Duration

	// MaxDelay caps any single wait.
	MaxDelay time.Duration

	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64

	// Jitter spreads each wait by ±Jitter (0.1 = ±10%) so parallel
	// research branches do not retry in lockstep.
	Jitter float64
}

// DefaultConfig is the standard node policy: 3 attempts, 200ms initial
// delay doubling up to a 5s cap, 10% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Disabled allows a single attempt and no waits.
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

// Delay returns the wait before retry number attempt (0-indexed):
// InitialDelay * Multiplier^attempt, capped at MaxDelay, then jittered.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	d = math.Min(d, float64(c.MaxDelay))

	if c.Jitter > 0 {
		d *= 1 + c.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(d)
}
