package querystate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type balance struct {
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

func TestTypedQuery_DecodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ETH","amount":"1.25"}`))
	}))
	defer server.Close()

	q := NewTypedQuery[balance](server.URL, DefaultConfig())
	defer q.Close()

	got, err := q.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, balance{Symbol: "ETH", Amount: "1.25"}, got)
	assert.NotNil(t, q.Handle().State().Data, "Underlying handle still records the raw payload")
}

func TestTypedQuery_PropagatesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	q := NewTypedQuery[balance](server.URL, DefaultConfig())
	defer q.Close()

	got, err := q.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, balance{}, got, "Failures return the zero value")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestTypedMutation_DecodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BIRB","amount":"42"}`))
	}))
	defer server.Close()

	m := NewTypedMutation[balance](DefaultConfig())
	defer m.Close()

	got, err := m.Mutate(context.Background(), &MutationParams{
		URL:  server.URL,
		Body: JSONBody(map[string]string{"to": "nest"}),
	})
	require.NoError(t, err)
	assert.Equal(t, balance{Symbol: "BIRB", Amount: "42"}, got)
}

func TestDecodeAs(t *testing.T) {
	got, err := decodeAs[balance](map[string]any{"symbol": "ETH", "amount": "1"})
	require.NoError(t, err)
	assert.Equal(t, balance{Symbol: "ETH", Amount: "1"}, got)

	zero, err := decodeAs[balance](nil)
	require.NoError(t, err)
	assert.Equal(t, balance{}, zero)

	_, err = decodeAs[balance]("plain text payload")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)
}
