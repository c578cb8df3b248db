package querystate

import (
	"context"
	"encoding/json"
)

// TypedQuery wraps a Query with a concrete payload type, decoding the parsed
// response into T so callers avoid type assertions.
//
// Example:
//
//	type Balance struct {
//	    Symbol string `json:"symbol"`
//	    Amount string `json:"amount"`
//	}
//
//	q := querystate.NewTypedQuery[Balance]("/v1/balance", cfg)
//	balance, err := q.Execute(ctx)
type TypedQuery[T any] struct {
	query *Query
}

// NewTypedQuery creates a typed query handle for url.
func NewTypedQuery[T any](url string, cfg *Config) *TypedQuery[T] {
	return &TypedQuery[T]{query: NewQuery(url, cfg)}
}

// Execute runs the underlying query and decodes the payload into T.
func (t *TypedQuery[T]) Execute(ctx context.Context) (T, error) {
	data, err := t.query.Execute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAs[T](data)
}

// Handle returns the underlying Query for state, cancel and reset access.
func (t *TypedQuery[T]) Handle() *Query {
	return t.query
}

// Close releases the underlying handle.
func (t *TypedQuery[T]) Close() {
	t.query.Close()
}

// TypedMutation wraps a Mutation with a concrete payload type.
type TypedMutation[T any] struct {
	mutation *Mutation
}

// NewTypedMutation creates a typed mutation handle.
func NewTypedMutation[T any](cfg *Config) *TypedMutation[T] {
	return &TypedMutation[T]{mutation: NewMutation(cfg)}
}

// Mutate runs the underlying mutation and decodes the payload into T.
func (t *TypedMutation[T]) Mutate(ctx context.Context, params *MutationParams) (T, error) {
	data, err := t.mutation.Mutate(ctx, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAs[T](data)
}

// Handle returns the underlying Mutation.
func (t *TypedMutation[T]) Handle() *Mutation {
	return t.mutation
}

// Close releases the underlying handle.
func (t *TypedMutation[T]) Close() {
	t.mutation.Close()
}

// decodeAs round-trips the generically parsed payload through JSON into a
// concrete type.
func decodeAs[T any](data any) (T, error) {
	var out T
	if data == nil {
		return out, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return out, newParseError(0, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, newParseError(0, err)
	}
	return out, nil
}
