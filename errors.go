package querystate

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the library. These can be used with errors.Is()
// to check for specific failure conditions.
//
// Example:
//
//	_, err := query.Execute(ctx)
//	if errors.Is(err, querystate.ErrCancelled) {
//	    // request was aborted by the caller or by the timeout
//	}
var (
	// ErrInvalidURL is returned when a request URL is empty or whitespace-only.
	ErrInvalidURL = errors.New("request URL must not be empty")

	// ErrInvalidParams is returned when Mutate is called without params or
	// with params that carry no URL.
	ErrInvalidParams = errors.New("mutation params are required")

	// ErrCancelled is returned when the effective cancellation signal aborted
	// the request, either via the caller or via the request timeout.
	ErrCancelled = errors.New("request was cancelled")

	// ErrNetworkFailure is returned for transport-level failures such as
	// connection refused or DNS resolution errors.
	ErrNetworkFailure = errors.New("network connection failed, check network status")

	// ErrParseFailure is returned when a response body cannot be parsed
	// according to its declared content type.
	ErrParseFailure = errors.New("response data parse failed")

	// ErrSerializeFailure is returned when a request body cannot be serialized.
	ErrSerializeFailure = errors.New("request body serialization failed")
)

// ErrorType categorizes an APIError for handling and retry decisions.
type ErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeValidation represents invalid input (empty URL, bad params).
	ErrorTypeValidation
	// ErrorTypeHTTPStatus represents a non-2xx HTTP response.
	ErrorTypeHTTPStatus
	// ErrorTypeSerialization represents a request body that could not be serialized.
	ErrorTypeSerialization
	// ErrorTypeParse represents a response body that could not be parsed.
	ErrorTypeParse
	// ErrorTypeCancellation represents an aborted request (caller or timeout).
	ErrorTypeCancellation
	// ErrorTypeNetwork represents a transport-level failure.
	ErrorTypeNetwork
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeHTTPStatus:
		return "http_status"
	case ErrorTypeSerialization:
		return "serialization"
	case ErrorTypeParse:
		return "parse"
	case ErrorTypeCancellation:
		return "cancellation"
	case ErrorTypeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// APIError is the canonical error shape produced by the request engine.
// Every failure, whatever its origin, is normalized into this type before
// it reaches the caller or a handle's state.
//
// APIError values are constructed at each failure site and never mutated
// afterwards. They support errors.Is/errors.As for inspection.
//
// Example:
//
//	var apiErr *querystate.APIError
//	if errors.As(err, &apiErr) {
//	    switch apiErr.Type {
//	    case querystate.ErrorTypeHTTPStatus:
//	        log.Printf("server said %d: %v", apiErr.Status, apiErr.Data)
//	    case querystate.ErrorTypeNetwork:
//	        // transient, worth retrying later
//	    }
//	}
type APIError struct {
	// Type categorizes the error for handling decisions.
	Type ErrorType `json:"type"`
	// Message is a human-readable error description.
	Message string `json:"message"`
	// Status is the HTTP status code, when the error came from a response.
	Status int `json:"status,omitempty"`
	// StatusText is the HTTP status text, when the error came from a response.
	StatusText string `json:"status_text,omitempty"`
	// Data carries the parsed (or raw) error payload, or the original value
	// for coerced unknown errors.
	Data any `json:"data,omitempty"`
	// RequestID is the request identifier echoed by the server, if any.
	RequestID string `json:"request_id,omitempty"`
	// wrapped is the underlying error, if any.
	wrapped error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error: %s (status %d)", e.Type, e.Message, e.Status)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *APIError) Unwrap() error {
	return e.wrapped
}

// Is maps error types onto the package sentinels so callers can use
// errors.Is without inspecting Type directly.
func (e *APIError) Is(target error) bool {
	switch e.Type {
	case ErrorTypeValidation:
		return target == ErrInvalidURL && e.Message == ErrInvalidURL.Error() ||
			target == ErrInvalidParams && e.Message == ErrInvalidParams.Error()
	case ErrorTypeCancellation:
		return target == ErrCancelled
	case ErrorTypeNetwork:
		return target == ErrNetworkFailure
	case ErrorTypeParse:
		return target == ErrParseFailure
	case ErrorTypeSerialization:
		return target == ErrSerializeFailure
	}
	return false
}

// IsRetryable reports whether the retry policy may re-attempt after this
// error. Only HTTP status failures and transport failures are retried;
// everything else propagates immediately.
func (e *APIError) IsRetryable() bool {
	return e.Type == ErrorTypeHTTPStatus || e.Type == ErrorTypeNetwork
}

func newValidationError(sentinel error) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: sentinel.Error(),
		wrapped: sentinel,
	}
}

func newHTTPStatusError(status int, payload any, requestID string) *APIError {
	statusText := http.StatusText(status)
	return &APIError{
		Type:       ErrorTypeHTTPStatus,
		Message:    fmt.Sprintf("request failed with status %d %s", status, statusText),
		Status:     status,
		StatusText: statusText,
		Data:       payload,
		RequestID:  requestID,
	}
}

func newParseError(status int, wrapped error) *APIError {
	return &APIError{
		Type:       ErrorTypeParse,
		Message:    ErrParseFailure.Error(),
		Status:     status,
		StatusText: http.StatusText(status),
		wrapped:    wrapped,
	}
}

func newSerializationError(wrapped error) *APIError {
	return &APIError{
		Type:    ErrorTypeSerialization,
		Message: ErrSerializeFailure.Error(),
		wrapped: wrapped,
	}
}

func newCancellationError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeCancellation,
		Message: ErrCancelled.Error(),
		wrapped: cause,
	}
}

func newNetworkError(wrapped error) *APIError {
	return &APIError{
		Type:    ErrorTypeNetwork,
		Message: ErrNetworkFailure.Error(),
		wrapped: wrapped,
	}
}

// CoerceError normalizes any error into an APIError. Existing APIErrors pass
// through unchanged; context cancellation and deadline errors become
// cancellation errors; everything else is wrapped as an unknown error with
// the original error preserved as Data.
func CoerceError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, ErrCancelled) {
		return newCancellationError(err)
	}
	return &APIError{
		Type:    ErrorTypeUnknown,
		Message: err.Error(),
		Data:    err,
		wrapped: err,
	}
}

// IsRetryable reports whether err is an APIError the retry policy would
// re-attempt after.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}

// IsCancelled reports whether err represents an aborted request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
