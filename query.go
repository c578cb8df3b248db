package querystate

import (
	"context"
	"strings"
	"sync"
)

// State is the observable snapshot of a handle: the last successful payload,
// whether a request is in flight, and the last failure. A fresh handle
// starts at the zero value {nil, false, nil}.
type State struct {
	// Data is the payload of the last successful call, nil until one lands.
	Data any
	// Loading reports whether a request is currently in flight.
	Loading bool
	// Error is the normalized failure of the last call, nil after a success.
	Error *APIError
}

// Query is an auto-executable request handle bound to a fixed URL. It holds
// a State that only the most recently issued call may write: starting a new
// call aborts and supersedes any prior one, and resolutions of superseded
// calls are discarded silently.
//
// A Query is safe for concurrent use. Close releases it; after Close the
// state is frozen and in-flight requests are aborted.
//
// Example:
//
//	q := querystate.NewQuery("/v1/balance", querystate.DefaultConfig().
//	    WithBaseURL("https://api.example.com"))
//	defer q.Close()
//
//	data, err := q.Execute(ctx)
//	if err != nil {
//	    log.Printf("balance fetch failed: %v", err)
//	}
//	_ = data
type Query struct {
	url string

	mu       sync.Mutex
	cfg      *Config
	state    State
	gen      uint64
	cancelFn context.CancelFunc
	mounted  bool
}

// NewQuery creates a handle for url. cfg may be nil, in which case defaults
// apply. The URL is fixed for the handle's lifetime; the config can be
// swapped later with SetConfig.
func NewQuery(url string, cfg *Config) *Query {
	return &Query{
		url:     url,
		cfg:     cfg,
		mounted: true,
	}
}

// SetConfig replaces the handle's configuration slot. The engine reads the
// slot at call time, so updated callbacks take effect on the next Execute
// without rebuilding the handle.
func (q *Query) SetConfig(cfg *Config) {
	q.mu.Lock()
	q.cfg = cfg
	q.mu.Unlock()
}

// State returns a snapshot of the handle's state.
func (q *Query) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Execute starts a call against the handle's URL, superseding any call still
// in flight. It returns the parsed payload or the normalized error; the
// handle's state reflects the same outcome unless this call was itself
// superseded or the handle closed before it settled.
func (q *Query) Execute(ctx context.Context) (any, error) {
	if strings.TrimSpace(q.url) == "" {
		apiErr := newValidationError(ErrInvalidURL)
		q.mu.Lock()
		cfg := q.cfg
		if q.mounted {
			q.state.Error = apiErr
		}
		q.mu.Unlock()
		notifyError(cfg, apiErr)
		return nil, apiErr
	}

	callCtx, gen, cfg := q.begin(ctx)
	resp, err := Execute(callCtx, q.url, cfg, Body{})
	return q.settle(gen, cfg, resp, err)
}

// Reset forces the state back to its initial value. An in-flight request is
// left running and may still settle into the state later.
func (q *Query) Reset() {
	q.mu.Lock()
	q.state = State{}
	q.mu.Unlock()
}

// Cancel aborts the current in-flight request, if any, and forces Loading
// to false. Data and Error are left untouched; the aborted call's
// resolution is discarded rather than recorded.
func (q *Query) Cancel() {
	q.mu.Lock()
	if q.cancelFn != nil {
		q.cancelFn()
		q.cancelFn = nil
	}
	q.gen++ // supersede so the aborted call cannot write state
	q.state.Loading = false
	q.mu.Unlock()
}

// Close marks the handle as unmounted and aborts any in-flight request.
// Subsequent resolutions become no-ops; the state is frozen.
func (q *Query) Close() {
	q.mu.Lock()
	q.mounted = false
	if q.cancelFn != nil {
		q.cancelFn()
		q.cancelFn = nil
	}
	q.mu.Unlock()
}

// begin supersedes any prior call, installs a fresh controller and flips the
// state to loading. It returns the call context, the call's generation and
// the config reference captured from the slot at call time.
func (q *Query) begin(ctx context.Context) (context.Context, uint64, *Config) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelFn != nil {
		q.cancelFn()
	}
	q.gen++
	callCtx, cancel := context.WithCancel(ctx)
	q.cancelFn = cancel
	if q.mounted {
		q.state.Loading = true
		q.state.Error = nil
	}
	return callCtx, q.gen, q.cfg
}

// settle records the call's outcome, unless the call was superseded or the
// handle closed, and notifies the caller-supplied callbacks. The outcome is
// always returned to the caller either way.
func (q *Query) settle(gen uint64, cfg *Config, resp *Response, err error) (any, error) {
	var data any
	if resp != nil {
		data = resp.Data
	}
	apiErr := CoerceError(err)

	q.mu.Lock()
	live := q.mounted && gen == q.gen
	if live {
		if q.cancelFn != nil {
			q.cancelFn()
			q.cancelFn = nil
		}
		q.state.Loading = false
		if apiErr != nil {
			q.state.Error = apiErr
		} else {
			q.state.Data = data
			q.state.Error = nil
		}
	}
	q.mu.Unlock()

	if live {
		if apiErr != nil {
			notifyError(cfg, apiErr)
		} else {
			notifySuccess(cfg, data)
		}
	}

	if apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

func notifySuccess(cfg *Config, data any) {
	if cfg == nil || cfg.OnSuccess == nil {
		return
	}
	safeInvoke(loggerOf(cfg), "OnSuccess callback", func() { cfg.OnSuccess(data) })
}

func notifyError(cfg *Config, apiErr *APIError) {
	if cfg == nil || cfg.OnError == nil {
		return
	}
	safeInvoke(loggerOf(cfg), "OnError callback", func() { cfg.OnError(apiErr) })
}

func loggerOf(cfg *Config) Logger {
	if cfg != nil && cfg.Logger != nil {
		return cfg.Logger
	}
	return NopLogger{}
}
