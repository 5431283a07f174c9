package embedding

import (
	"context"
	"time"
)

// retryWithBackoff runs op up to maxAttempts times, sleeping baseDelay,
// 2*baseDelay, 4*baseDelay... between attempts. It stops early when
// retryable reports false for an error or ctx is done, and returns the
// last error.
func retryWithBackoff(ctx context.Context, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, op func(attempt int) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts || !retryable(lastErr) {
			break
		}

		delay := baseDelay << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
