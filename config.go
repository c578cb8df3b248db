package querystate

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a whole logical request including retries.
	DefaultTimeout = 10 * time.Second

	// DefaultRetryDelay is the base delay between retry attempts.
	DefaultRetryDelay = time.Second
)

// Transport is the fetch-like collaborator the engine sends requests
// through. *http.Client satisfies it; tests and hosts may substitute their
// own.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds request configuration for the engine and the state handles.
// The zero value is usable; DefaultConfig fills in the documented defaults.
//
// Config is owned by the caller and read-only to the engine. Handles re-read
// their config slot on every invocation, so swapping an updated Config in
// via SetConfig takes effect on the next call without rebuilding the handle.
//
// Example:
//
//	cfg := querystate.DefaultConfig().
//	    WithBaseURL("https://api.example.com").
//	    WithTimeout(5 * time.Second).
//	    WithRetries(2)
type Config struct {
	// BaseURL is prefixed onto request URLs that carry no scheme.
	BaseURL string

	// Method is the HTTP method. Queries default to GET, mutations to POST.
	Method string

	// Headers are sent with every request. A caller-supplied Content-Type
	// suppresses the body-variant default.
	Headers map[string]string

	// Timeout bounds the whole logical request. Default: 10s.
	Timeout time.Duration

	// Retries is the attempt count beyond the first. Default: 0.
	Retries int

	// RetryDelay is the base delay between attempts. Default: 1s.
	RetryDelay time.Duration

	// Backoff doubles RetryDelay after each failed attempt. DefaultConfig
	// enables it.
	Backoff bool

	// OnSuccess is invoked with the parsed payload after a successful call.
	// Invoked defensively: a panic is logged and swallowed.
	OnSuccess func(data any)

	// OnError is invoked with the normalized error after a failed call.
	// Invoked defensively: a panic is logged and swallowed.
	OnError func(err *APIError)

	// Logger receives retry and callback-failure warnings. Default: NopLogger.
	Logger Logger

	// Observer receives request lifecycle hooks. Default: NoopObserver.
	Observer Observer

	// Transport performs the actual HTTP exchange. Default: a pooled
	// *http.Client.
	Transport Transport

	// RateLimiter, when set, is awaited before every attempt.
	RateLimiter *rate.Limiter

	// NewRequestID generates the X-Request-ID header value when the caller
	// has not set one. Default: uuid.NewString.
	NewRequestID func() string
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:    DefaultTimeout,
		RetryDelay: DefaultRetryDelay,
		Backoff:    true,
		Headers:    make(map[string]string),
	}
}

// WithBaseURL sets the base URL prefixed onto scheme-less request URLs.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// WithMethod sets the HTTP method.
func (c *Config) WithMethod(method string) *Config {
	c.Method = method
	return c
}

// WithHeader adds a header sent with every request.
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithTimeout sets the logical request timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetries sets the attempt count beyond the first.
func (c *Config) WithRetries(retries int) *Config {
	c.Retries = retries
	return c
}

// WithRetryDelay sets the base delay between attempts.
func (c *Config) WithRetryDelay(delay time.Duration) *Config {
	c.RetryDelay = delay
	return c
}

// WithCallbacks sets the success and error callbacks.
func (c *Config) WithCallbacks(onSuccess func(data any), onError func(err *APIError)) *Config {
	c.OnSuccess = onSuccess
	c.OnError = onError
	return c
}

// WithLogger sets the logging collaborator.
func (c *Config) WithLogger(logger Logger) *Config {
	c.Logger = logger
	return c
}

// WithObserver sets the lifecycle observer.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithTransport sets the transport collaborator.
func (c *Config) WithTransport(transport Transport) *Config {
	c.Transport = transport
	return c
}

// WithRateLimiter gates attempts on a client-side token bucket.
func (c *Config) WithRateLimiter(limiter *rate.Limiter) *Config {
	c.RateLimiter = limiter
	return c
}

// clone returns a shallow copy with its own header map.
func (c *Config) clone() *Config {
	out := *c
	out.Headers = make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		out.Headers[k] = v
	}
	return &out
}

// normalized returns a defensive copy with defaults applied. A nil receiver
// yields the default configuration.
func (c *Config) normalized() *Config {
	if c == nil {
		return DefaultConfig().normalized()
	}
	out := c.clone()
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Retries < 0 {
		out.Retries = 0
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = DefaultRetryDelay
	}
	if out.Logger == nil {
		out.Logger = NopLogger{}
	}
	if out.Observer == nil {
		out.Observer = NoopObserver{}
	}
	if out.Transport == nil {
		out.Transport = defaultTransport
	}
	if out.NewRequestID == nil {
		out.NewRequestID = uuid.NewString
	}
	return out
}

// defaultTransport is the shared pooled HTTP client used when no transport
// is injected. Timeouts are enforced per request via context, not here.
var defaultTransport = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}
