package querystate

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MutationParams carries the per-call inputs of a Mutation. URL is required;
// the remaining fields override the handle's base configuration for this
// call only.
type MutationParams struct {
	// URL is the request URL, required. Resolved against the config's
	// BaseURL when it carries no scheme.
	URL string

	// Body is the request payload. The zero value sends no body.
	Body Body

	// Method overrides the configured method. Mutations default to POST.
	Method string

	// Headers are merged over the configured headers for this call.
	Headers map[string]string

	// Timeout overrides the configured timeout when positive.
	Timeout time.Duration

	// Retries overrides the configured retry count when non-nil.
	Retries *int

	// RetryDelay overrides the configured retry delay when positive.
	RetryDelay time.Duration

	// OnSuccess overrides the configured success callback for this call.
	OnSuccess func(data any)

	// OnError overrides the configured error callback for this call.
	OnError func(err *APIError)
}

// Mutation is a manually triggered request handle. It shares Query's state
// shape and single-flight discipline but takes its URL and body per call.
//
// Example:
//
//	m := querystate.NewMutation(querystate.DefaultConfig().
//	    WithBaseURL("https://api.example.com"))
//	defer m.Close()
//
//	data, err := m.Mutate(ctx, &querystate.MutationParams{
//	    URL:  "/v1/orders",
//	    Body: querystate.JSONBody(order),
//	})
type Mutation struct {
	mu       sync.Mutex
	cfg      *Config
	state    State
	gen      uint64
	cancelFn context.CancelFunc
	mounted  bool
}

// NewMutation creates a mutation handle. cfg may be nil, in which case
// defaults apply.
func NewMutation(cfg *Config) *Mutation {
	return &Mutation{
		cfg:     cfg,
		mounted: true,
	}
}

// SetConfig replaces the handle's configuration slot, read fresh on the next
// Mutate call.
func (m *Mutation) SetConfig(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// State returns a snapshot of the handle's state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mutate starts a call described by params, superseding any call still in
// flight. Missing params or an empty URL fail fast before the in-flight
// controller is touched.
func (m *Mutation) Mutate(ctx context.Context, params *MutationParams) (any, error) {
	if params == nil {
		return nil, m.failValidation(ErrInvalidParams)
	}
	if strings.TrimSpace(params.URL) == "" {
		return nil, m.failValidation(ErrInvalidURL)
	}

	callCtx, gen, cfg := m.begin(ctx, params)
	resp, err := Execute(callCtx, params.URL, cfg, params.Body)
	return m.settle(gen, cfg, resp, err)
}

// Reset forces the state back to its initial value without cancelling an
// in-flight request.
func (m *Mutation) Reset() {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
}

// Cancel aborts the current in-flight request, if any, and forces Loading
// to false, leaving Data and Error untouched.
func (m *Mutation) Cancel() {
	m.mu.Lock()
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.gen++
	m.state.Loading = false
	m.mu.Unlock()
}

// Close marks the handle as unmounted and aborts any in-flight request.
func (m *Mutation) Close() {
	m.mu.Lock()
	m.mounted = false
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.mu.Unlock()
}

// failValidation records a pre-flight validation failure without touching
// the controller or the loading flag.
func (m *Mutation) failValidation(sentinel error) *APIError {
	apiErr := newValidationError(sentinel)
	m.mu.Lock()
	cfg := m.cfg
	if m.mounted {
		m.state.Error = apiErr
	}
	m.mu.Unlock()
	notifyError(cfg, apiErr)
	return apiErr
}

func (m *Mutation) begin(ctx context.Context, params *MutationParams) (context.Context, uint64, *Config) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFn != nil {
		m.cancelFn()
	}
	m.gen++
	callCtx, cancel := context.WithCancel(ctx)
	m.cancelFn = cancel
	if m.mounted {
		m.state.Loading = true
		m.state.Error = nil
	}
	return callCtx, m.gen, mergeParams(m.cfg, params)
}

func (m *Mutation) settle(gen uint64, cfg *Config, resp *Response, err error) (any, error) {
	var data any
	if resp != nil {
		data = resp.Data
	}
	apiErr := CoerceError(err)

	m.mu.Lock()
	live := m.mounted && gen == m.gen
	if live {
		if m.cancelFn != nil {
			m.cancelFn()
			m.cancelFn = nil
		}
		m.state.Loading = false
		if apiErr != nil {
			m.state.Error = apiErr
		} else {
			m.state.Data = data
			m.state.Error = nil
		}
	}
	m.mu.Unlock()

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

// mergeParams builds the per-call config: a copy of the base with the
// params' overrides applied on top.
func mergeParams(base *Config, params *MutationParams) *Config {
	cfg := base.normalized()
	if params.Method != "" {
		cfg.Method = params.Method
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	for key, value := range params.Headers {
		cfg.Headers[key] = value
	}
	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	}
	if params.Retries != nil {
		cfg.Retries = *params.Retries
	}
	if params.RetryDelay > 0 {
		cfg.RetryDelay = params.RetryDelay
	}
	if params.OnSuccess != nil {
		cfg.OnSuccess = params.OnSuccess
	}
	if params.OnError != nil {
		cfg.OnError = params.OnError
	}
	return cfg
}
