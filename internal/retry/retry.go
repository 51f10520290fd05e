package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than zero")

// WithBackoff retries op with exponential backoff (baseDelay doubles after
// each attempt). retryable decides whether a failure is worth another
// attempt; a nil retryable retries everything. The error from the last
// attempt is returned when all attempts fail.
func WithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration, retryable func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				slog.DebugContext(ctx, "operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		slog.DebugContext(ctx, "operation failed, backing off", "attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
