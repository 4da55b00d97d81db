package dust

import (
	"context"
	"time"
)

// RetryPolicy bounds repeated attempts of a failing operation.
type RetryPolicy struct {
	MaxAttempts int
	// Delay maps a 1-based attempt number to the wait before the next try.
	Delay func(attempt int) time.Duration
}

// DefaultRetryPolicy mirrors the sweep defaults: 3 attempts with a linear
// 2s, 4s backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return LinearRetryPolicy(3, 2*time.Second)
}

// LinearRetryPolicy waits base*attempt between attempts.
func LinearRetryPolicy(maxAttempts int, base time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay: func(attempt int) time.Duration {
			return base * time.Duration(attempt)
		},
	}
}

// Do runs fn up to MaxAttempts times, sleeping per the policy between
// failures. Non-retryable errors (user rejection, cancelled context) return
// immediately without consuming the remaining attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(0)
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return lastErr
}
