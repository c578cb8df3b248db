package querystate

import (
	"encoding/json"
	"net/http"
)

// Response is the normalized result of a successful request. Data holds the
// payload parsed by content type: decoded JSON for application/json
// responses, the raw text otherwise.
type Response struct {
	// Data is the parsed payload.
	Data any
	// Status is the HTTP status code.
	Status int
	// StatusText is the HTTP status text.
	StatusText string
	// Headers are the response headers.
	Headers http.Header

	raw  []byte
	json bool
}

// DecodeInto re-decodes a JSON response body into dest, for callers that
// want a concrete type instead of the generic parse held in Data. Non-JSON
// responses require dest to be a *string.
func (r *Response) DecodeInto(dest any) error {
	if !r.json {
		s, ok := dest.(*string)
		if !ok {
			return newParseError(r.Status, ErrParseFailure)
		}
		*s = string(r.raw)
		return nil
	}
	if err := json.Unmarshal(r.raw, dest); err != nil {
		return newParseError(r.Status, err)
	}
	return nil
}
