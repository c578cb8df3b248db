package querystate

import (
	"context"
	"errors"
)

// errTimeoutElapsed is the cause attached to the internal timeout signal so
// the abort source can be told apart from a caller-initiated cancellation in
// logs. Both map to the cancellation error class.
var errTimeoutElapsed = errors.New("request timeout elapsed")

// firstDone merges several cancellation sources into one effective signal
// that fires as soon as any parent is done, first-wins. The cause of the
// winning parent is carried over.
//
// The returned release function unregisters every parent listener exactly
// once and must be called on every exit path, whether or not any source
// fired.
func firstDone(parents ...context.Context) (context.Context, func()) {
	merged, cancel := context.WithCancelCause(context.Background())

	stops := make([]func() bool, 0, len(parents))
	for _, parent := range parents {
		stops = append(stops, context.AfterFunc(parent, func() {
			cancel(context.Cause(parent))
		}))
	}

	release := func() {
		for _, stop := range stops {
			stop()
		}
		cancel(context.Canceled)
	}
	return merged, release
}

// abortCause reports the cause behind a fired effective signal, or nil when
// the signal has not fired.
func abortCause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
