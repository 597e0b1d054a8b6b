package llm

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy retries transient provider failures with exponential
// backoff. The zero value performs a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// transientError marks a failure worth retrying (network error, 429,
// 5xx). Anything else aborts immediately.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error { return &transientError{err: err} }

// Do runs fn until it succeeds, fails terminally, exhausts the
// attempts, or the context is done.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return errors.Join(ctx.Err(), err)
			}
		}

		err = fn()
		if err == nil {
			return nil
		}

		var te *transientError
		if !errors.As(err, &te) {
			return err
		}
	}
	return err
}
