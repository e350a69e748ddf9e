package omronfins

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryInterceptor creates an interceptor that retries failed operations
// It will retry up to maxRetries times with the specified delay between attempts.
// Context errors (Canceled, DeadlineExceeded) are not retried, and neither is
// a nonzero completion code since the PLC did answer.
//
// Example:
//
//	// Retry up to 3 times with 100ms delay
//	client.SetInterceptor(omronfins.RetryInterceptor(3, 100*time.Millisecond, logger))
func RetryInterceptor(maxRetries int, delay time.Duration, logger *zap.Logger) Interceptor {
	return retryInterceptor(maxRetries, func(int) time.Duration { return delay }, nil, logger)
}

// RetryInterceptorWithBackoff creates a retry interceptor with exponential backoff
// The delay is doubled after each retry, up to a maximum delay.
//
// Example:
//
//	// Retry with exponential backoff: 100ms, 200ms, 400ms, max 1s
//	client.SetInterceptor(omronfins.RetryInterceptorWithBackoff(3, 100*time.Millisecond, time.Second, logger))
func RetryInterceptorWithBackoff(maxRetries int, initialDelay, maxDelay time.Duration, logger *zap.Logger) Interceptor {
	return retryInterceptor(maxRetries, func(attempt int) time.Duration {
		delay := initialDelay
		for i := 0; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				return maxDelay
			}
		}
		return delay
	}, nil, logger)
}

// RetryInterceptorConditional creates a retry interceptor that only retries certain errors
// The shouldRetry function determines whether an error should be retried.
//
// Example:
//
//	// Only retry receive timeouts
//	shouldRetry := func(err error) bool {
//		return errors.Is(err, omronfins.ErrReceiveTimeout)
//	}
//	client.SetInterceptor(omronfins.RetryInterceptorConditional(3, 100*time.Millisecond, shouldRetry, logger))
func RetryInterceptorConditional(maxRetries int, delay time.Duration, shouldRetry func(error) bool, logger *zap.Logger) Interceptor {
	return retryInterceptor(maxRetries, func(int) time.Duration { return delay }, shouldRetry, logger)
}

func retryInterceptor(maxRetries int, delayFor func(attempt int) time.Duration, shouldRetry func(error) bool, logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("FINS")

	return func(c *InterceptorCtx) (interface{}, error) {
		var result interface{}
		var err error
		ctx := c.Context()
		info := c.Info()

		for attempt := 0; attempt <= maxRetries; attempt++ {
			result, err = c.Invoke(ctx)
			if err == nil {
				return result, nil
			}

			// Don't retry on context errors
			if ctx.Err() != nil {
				return nil, err
			}

			if shouldRetry != nil && !shouldRetry(err) {
				return result, err
			}

			// Don't retry on last attempt
			if attempt < maxRetries {
				delay := delayFor(attempt)
				logger.Warn("retrying",
					zap.String("operation", string(info.Operation)),
					zap.Int("attempt", attempt+1),
					zap.Int("max_attempts", maxRetries+1),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
				if err := sleepContext(ctx, delay); err != nil {
					return nil, err
				}
			}
		}

		return result, fmt.Errorf("operation failed after %d attempts: %w", maxRetries+1, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
