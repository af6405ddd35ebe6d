package httpremote

import (
	"context"
	"time"
)

// RetryConfig bounds retries of retryable submit failures (transport errors
// and 5xx responses). 4xx responses are never retried.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig retries twice with a short exponential backoff, so a
// transient blip does not immediately degrade a mutation to unknown.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

func (eb *exponentialBackoff) nextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(eb.initialDelay)
	for i := 0; i < attempt; i++ {
		delay *= eb.multiplier
	}

	result := time.Duration(delay)
	if result > eb.maxDelay {
		result = eb.maxDelay
	}
	return result
}

// withRetry runs operation, retrying while it reports retryable failure.
// Returns the last error once attempts are exhausted or ctx is done.
func withRetry(ctx context.Context, config RetryConfig, operation func() (retryable bool, err error)) error {
	if config.MaxAttempts <= 1 {
		_, err := operation()
		return err
	}

	eb := &exponentialBackoff{
		initialDelay: config.InitialDelay,
		maxDelay:     config.MaxDelay,
		multiplier:   config.Multiplier,
	}

	retryable, err := operation()
	if err == nil || !retryable {
		return err
	}

	for attempt := 1; attempt < config.MaxAttempts; attempt++ {
		delay := eb.nextDelay(attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		retryable, err = operation()
		if err == nil || !retryable {
			return err
		}
	}

	return err
}
