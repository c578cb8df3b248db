package querystate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const headerRequestID = "X-Request-ID"

// Execute performs one logical HTTP operation: build the request, send it
// through the transport, retry per the configuration, bound the whole thing
// by the timeout, and normalize the outcome. It is the engine underneath
// Query and Mutation but is usable on its own.
//
// ctx is the caller's cancellation signal; it is merged with the internal
// timeout signal so the earliest abort wins. Every failure is returned as an
// *APIError.
func Execute(ctx context.Context, rawURL string, cfg *Config, body Body) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()

	if strings.TrimSpace(rawURL) == "" {
		return nil, newValidationError(ErrInvalidURL)
	}
	fullURL := resolveURL(cfg.BaseURL, rawURL)

	// Serialize once, before any network activity; the buffer is replayed
	// on every retry attempt.
	payload, bodyContentType, err := body.payload()
	if err != nil {
		return nil, CoerceError(err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	timeoutCtx, cancelTimeout := context.WithTimeoutCause(context.Background(), cfg.Timeout, errTimeoutElapsed)
	defer cancelTimeout()
	effective, release := firstDone(ctx, timeoutCtx)
	defer release()

	cfg.Observer.OnRequestStart(method, fullURL)
	start := time.Now()

	var result *Response
	attempt := func() error {
		if cfg.RateLimiter != nil {
			if err := cfg.RateLimiter.Wait(effective); err != nil {
				if cause := abortCause(effective); cause != nil {
					return noRetry(newCancellationError(cause))
				}
				return noRetry(CoerceError(err))
			}
		}

		var reader io.Reader
		if body.isSet() {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(effective, method, fullURL, reader)
		if err != nil {
			return noRetry(newValidationError(ErrInvalidURL))
		}
		applyHeaders(req, cfg, body, bodyContentType)

		resp, err := cfg.Transport.Do(req)
		if err != nil {
			if cause := abortCause(effective); cause != nil {
				return noRetry(newCancellationError(cause))
			}
			return newNetworkError(err)
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if cause := abortCause(effective); cause != nil {
				return noRetry(newCancellationError(cause))
			}
			return newNetworkError(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newHTTPStatusError(resp.StatusCode, parseErrorPayload(raw), resp.Header.Get(headerRequestID))
		}

		parsed, isJSON, err := parseSuccessPayload(resp.Header.Get("Content-Type"), raw)
		if err != nil {
			return noRetry(newParseError(resp.StatusCode, err))
		}
		result = &Response{
			Data:       parsed,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Headers:    resp.Header,
			raw:        raw,
			json:       isJSON,
		}
		return nil
	}

	err = retryWithBackoff(effective, attempt, RetryOptions{
		MaxAttempts: cfg.Retries + 1,
		Delay:       cfg.RetryDelay,
		Backoff:     cfg.Backoff,
		OnError: func(attemptErr error, n int) {
			delay := cfg.RetryDelay
			if cfg.Backoff {
				delay = cfg.RetryDelay << (n - 1)
			}
			safeInvoke(cfg.Logger, "retry notification", func() {
				cfg.Logger.Warn("request attempt failed, retrying",
					"method", method, "url", fullURL, "attempt", n, "delay", delay, "error", attemptErr)
				cfg.Observer.OnRetryAttempt(method, fullURL, n, delay, attemptErr)
			})
		},
	})

	status := 0
	if result != nil {
		status = result.Status
	}
	cfg.Observer.OnRequestEnd(method, fullURL, status, time.Since(start), err)

	if err != nil {
		return nil, CoerceError(err)
	}
	return result, nil
}

// resolveURL uses rawURL verbatim when it carries a scheme, otherwise
// concatenates it onto the base URL.
func resolveURL(baseURL, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		return rawURL
	}
	if baseURL == "" {
		return rawURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(rawURL, "/")
}

// applyHeaders sets caller headers, defaults the content type from the body
// variant when the caller left it unset, and stamps a request ID.
func applyHeaders(req *http.Request, cfg *Config, body Body, bodyContentType string) {
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body.isSet() {
		if bodyContentType != "" {
			req.Header.Set("Content-Type", bodyContentType)
		} else if !body.isForm() {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, cfg.NewRequestID())
	}
}

// parseErrorPayload reads a non-2xx body as text, attempts a JSON parse and
// falls back to the raw text.
func parseErrorPayload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return parsed
	}
	return string(raw)
}

// parseSuccessPayload parses a 2xx body by its declared content type:
// application/json is decoded, everything else is returned as text.
func parseSuccessPayload(contentType string, raw []byte) (any, bool, error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		if len(raw) == 0 {
			return nil, true, nil
		}
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, true, err
		}
		return parsed, true, nil
	}
	return string(raw), false, nil
}

// safeInvoke runs fn and swallows any panic, logging it through the
// engine's logger so a collaborator bug cannot corrupt request state.
func safeInvoke(logger Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if logger == nil {
				return
			}
			func() {
				defer func() { recover() }()
				logger.Warn("collaborator panicked", "site", name, "panic", r)
			}()
		}
	}()
	fn()
}
