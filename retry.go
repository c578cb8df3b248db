package querystate

import (
	"context"
	"errors"
	"time"
)

// RetryOptions controls retryWithBackoff.
type RetryOptions struct {
	// MaxAttempts is the total number of attempts, 1-indexed.
	// Default: 3.
	MaxAttempts int

	// Delay is the base delay between attempts.
	// Default: 1s.
	Delay time.Duration

	// Backoff doubles the delay after every failed attempt when true:
	// delay * 2^(attempt-1). When false the delay stays fixed.
	Backoff bool

	// OnError is invoked after each failed non-final attempt with the error
	// and the 1-indexed attempt number. It is called as-is; callers that need
	// panic protection must guard it themselves.
	OnError func(err error, attempt int)
}

// terminalError marks an error that must not be retried. The retry loop
// unwraps it and returns the inner error immediately.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// noRetry wraps err so retryWithBackoff stops immediately instead of
// re-attempting.
func noRetry(err error) error {
	return &terminalError{err: err}
}

// retryWithBackoff runs fn up to MaxAttempts times. A failed non-final
// attempt notifies OnError, waits out the (optionally exponential) delay and
// tries again. The final attempt's error is returned as-is with no trailing
// delay. Success at any attempt short-circuits the rest.
//
// The delay wait aborts as soon as ctx fires, ending the loop with a
// cancellation error rather than exhausting the remaining attempts.
func retryWithBackoff(ctx context.Context, fn func() error, opts RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var term *terminalError
		if errors.As(err, &term) {
			return term.err
		}
		if attempt >= opts.MaxAttempts {
			return err
		}

		if opts.OnError != nil {
			opts.OnError(err, attempt)
		}

		delay := opts.Delay
		if opts.Backoff {
			delay = opts.Delay << (attempt - 1)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return newCancellationError(abortCause(ctx))
		case <-timer.C:
		}
	}
}
