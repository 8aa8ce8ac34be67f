package retry

import (
	"context"
	"time"
)

// Do runs fn up to cfg.MaxAttempts times, waiting cfg.Delay between
// attempts. Only errors IsTransient accepts are retried; classified
// pipeline errors answer through their taxonomy kind, so a DataNotFound
// never burns extra attempts. Backoff waits end early when ctx is done.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt == attempts || !IsTransient(err) {
			return zero, err
		}

		timer := time.NewTimer(cfg.Delay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
