// Package querystate is an HTTP request execution engine with single-flight
// state handles, built for API layers that track request state the way UI
// code does: data, loading, error.
//
// # Features
//
//   - One logical request per call: build, send, retry with exponential
//     backoff, bound by a timeout, parse by content type, normalize every
//     failure into a single APIError shape
//   - First-wins cancellation: the caller's context and the internal timeout
//     are merged into one effective signal with guaranteed listener cleanup
//   - Two state handles: Query (fixed URL, auto-executable) and Mutation
//     (per-call URL and body), each enforcing at most one in-flight request
//     and discarding superseded resolutions silently
//   - Tagged request bodies (JSON, raw string, URL-encoded form, multipart)
//     decided at the call site, never probed at runtime
//   - Injected collaborators: Transport, Logger, Observer, rate limiter
//
// # Basic Usage
//
//	cfg := querystate.DefaultConfig().
//	    WithBaseURL("https://api.example.com").
//	    WithRetries(2)
//
//	q := querystate.NewQuery("/v1/profile", cfg)
//	defer q.Close()
//
//	data, err := q.Execute(ctx)
//	if err != nil {
//	    var apiErr *querystate.APIError
//	    if errors.As(err, &apiErr) && apiErr.Status == 404 {
//	        // handle missing profile
//	    }
//	}
//	_ = data
//
// # Mutations
//
//	m := querystate.NewMutation(cfg)
//	defer m.Close()
//
//	_, err := m.Mutate(ctx, &querystate.MutationParams{
//	    URL:  "/v1/profile",
//	    Body: querystate.JSONBody(map[string]string{"name": "Alice"}),
//	})
//
// # State
//
// Each handle owns a State{Data, Loading, Error} snapshot. Only the most
// recently issued call may write it: starting a new call aborts any prior
// one, and a superseded call's resolution is returned to its caller but
// never recorded. Reset restores the initial state; Cancel aborts the
// in-flight request and clears Loading without touching Data or Error;
// Close freezes the handle.
//
// # Error Handling
//
// Every failure is an *APIError tagged with an ErrorType: validation, HTTP
// status, serialization, parse, cancellation, network or unknown. Sentinel
// errors (ErrCancelled, ErrNetworkFailure, ...) work with errors.Is. Only
// HTTP status and network failures are retried.
//
// # Logging
//
// The engine consumes a small Logger capability injected through Config.
// NopLogger is the default; NewZerologLogger adapts a zerolog.Logger at the
// application boundary.
package querystate
