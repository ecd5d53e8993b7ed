// Package retry re-runs an operation until its result is acceptable.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt produced an unacceptable result.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how often an operation is attempted and which results end
// the loop. Errors returned by the operation itself are not retried.
type Policy[T any] struct {
	MaxAttempts int
	Success     func(T) bool
	// Delay between attempts; zero retries immediately.
	Delay time.Duration
	// OnRetry, if set, is called before every attempt after the first.
	OnRetry func(attempt int)
}

// Do runs op until Success accepts its result. It returns the accepted
// result, the first operation error, or the last result with ErrExhausted.
func (p Policy[T]) Do(ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var last T
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.OnRetry != nil {
				p.OnRetry(attempt)
			}
			if err := sleep(ctx, p.Delay); err != nil {
				return last, err
			}
		}

		result, err := op(ctx)
		if err != nil {
			return result, err
		}
		if p.Success == nil || p.Success(result) {
			return result, nil
		}
		last = result
	}
	return last, ErrExhausted
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
