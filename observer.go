package querystate

import "time"

// Observer provides hooks for monitoring request execution. Implement it to
// feed metrics or tracing from the host application; observer methods should
// be fast and must not block.
type Observer interface {
	// OnRequestStart is called once per logical request, before the first
	// attempt.
	OnRequestStart(method, url string)

	// OnRequestEnd is called once per logical request after retries are
	// settled. err is nil on success.
	OnRequestEnd(method, url string, status int, duration time.Duration, err error)

	// OnRetryAttempt is called before each retry delay with the 1-indexed
	// number of the attempt that just failed and the delay about to be
	// waited.
	OnRetryAttempt(method, url string, attempt int, delay time.Duration, err error)
}

// NoopObserver is the default Observer; it does nothing.
type NoopObserver struct{}

// OnRequestStart does nothing.
func (NoopObserver) OnRequestStart(method, url string) {}

// OnRequestEnd does nothing.
func (NoopObserver) OnRequestEnd(method, url string, status int, duration time.Duration, err error) {
}

// OnRetryAttempt does nothing.
func (NoopObserver) OnRetryAttempt(method, url string, attempt int, delay time.Duration, err error) {
}
