package backoff

import (
	"context"
	"errors"
)

// ErrMaxAttemptsExhausted is returned when all retry attempts have been exhausted.
var ErrMaxAttemptsExhausted = errors.New("max retry attempts exhausted")

// RetryResult holds the result of a retry operation.
type RetryResult[T any] struct {
	Value     T
	Attempts  int
	LastError error
}

// Retry calls fn up to maxAttempts times, sleeping between failures according
// to policy. fn receives the 1-indexed attempt number. Context cancellation is
// checked before every attempt and interrupts the sleep.
//
// When every attempt fails the returned error wraps both
// ErrMaxAttemptsExhausted and the last error from fn.
func Retry[T any](
	ctx context.Context,
	policy Policy,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (RetryResult[T], error) {
	var result RetryResult[T]
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			return result, nil
		}
		result.LastError = err

		if attempt < maxAttempts {
			if err := policy.Sleep(ctx, attempt); err != nil {
				return result, err
			}
		}
	}

	return result, errors.Join(ErrMaxAttemptsExhausted, result.LastError)
}
