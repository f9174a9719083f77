package reembed

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/groundwork/ai"
)

// RetryWithBackoff calls operation until it succeeds, maxAttempts is reached
// or ctx is done. The delay starts at baseDelay and doubles after every
// failure. Authentication failures are returned at once since repeating the
// request cannot fix them. The error of the last attempt is returned.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := baseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		kind := ai.Classify(lastErr)
		if kind == ai.KindAuthentication || kind == ai.KindCanceled {
			return lastErr
		}
		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "kind", kind, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

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
