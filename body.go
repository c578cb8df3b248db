package querystate

import (
	"encoding/json"
	"io"
	"net/url"
)

// bodyKind tags the request body variant. The variant is decided once at the
// call site, so the engine never has to probe the payload's runtime type.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyRaw
	bodyForm
	bodyURLEncoded
)

// Body is a tagged request body. The zero value means "no body" and passes
// through the engine unchanged.
//
// Construct bodies with one of the variant constructors:
//
//	querystate.JSONBody(map[string]any{"name": "Alice"})
//	querystate.RawBody(`{"already":"encoded"}`)
//	querystate.URLEncodedBody(url.Values{"q": {"birds"}})
//	querystate.FormBody(writer.FormDataContentType(), &buf)
type Body struct {
	kind        bodyKind
	value       any        // bodyJSON
	raw         string     // bodyRaw
	form        io.Reader  // bodyForm
	values      url.Values // bodyURLEncoded
	contentType string     // bodyForm only; carries the multipart boundary
}

// JSONBody wraps an arbitrary structured value to be JSON-encoded at send
// time. Encoding failures surface as a serialization APIError.
func JSONBody(v any) Body {
	return Body{kind: bodyJSON, value: v}
}

// RawBody wraps a pre-encoded string payload. It is sent byte-for-byte.
func RawBody(s string) Body {
	return Body{kind: bodyRaw, raw: s}
}

// URLEncodedBody wraps form values to be sent as
// application/x-www-form-urlencoded.
func URLEncodedBody(v url.Values) Body {
	return Body{kind: bodyURLEncoded, values: v}
}

// FormBody wraps an opaque multipart payload. contentType must be the
// multipart content type including its boundary, typically
// multipart.Writer.FormDataContentType().
func FormBody(contentType string, payload io.Reader) Body {
	return Body{kind: bodyForm, form: payload, contentType: contentType}
}

// isSet reports whether the body carries a payload.
func (b Body) isSet() bool {
	return b.kind != bodyNone
}

// isForm reports whether the body is a multipart form payload. Multipart
// bodies keep their own content type and are never defaulted to JSON.
func (b Body) isForm() bool {
	return b.kind == bodyForm
}

// payload serializes the body once, before any network activity. The result
// is buffered so retries can replay it. It returns the encoded bytes and the
// content type implied by the variant; an empty content type means the
// engine's default applies.
func (b Body) payload() ([]byte, string, error) {
	switch b.kind {
	case bodyNone:
		return nil, "", nil
	case bodyRaw:
		return []byte(b.raw), "", nil
	case bodyURLEncoded:
		return []byte(b.values.Encode()), "application/x-www-form-urlencoded", nil
	case bodyForm:
		data, err := io.ReadAll(b.form)
		if err != nil {
			return nil, "", newSerializationError(err)
		}
		return data, b.contentType, nil
	default:
		data, err := json.Marshal(b.value)
		if err != nil {
			return nil, "", newSerializationError(err)
		}
		return data, "application/json", nil
	}
}
