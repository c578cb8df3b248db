package querystate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_InitialState(t *testing.T) {
	q := NewQuery("http://localhost/x", nil)
	defer q.Close()

	state := q.State()
	assert.Nil(t, state.Data)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Error)
}

func TestQuery_SuccessTransitions(t *testing.T) {
	transport := newGatedTransport()
	q := NewQuery("http://localhost/x", DefaultConfig().WithTransport(transport))
	defer q.Close()

	done := make(chan struct{})
	var data any
	var err error
	go func() {
		data, err = q.Execute(context.Background())
		close(done)
	}()

	<-transport.entered
	assert.True(t, q.State().Loading, "State should be loading while in flight")

	transport.proceed <- `{"ok":true}`
	<-done

	require.NoError(t, err)
	state := q.State()
	assert.False(t, state.Loading)
	assert.Nil(t, state.Error)
	assert.Equal(t, map[string]any{"ok": true}, state.Data)
	assert.Equal(t, state.Data, data, "Returned payload matches state")
}

// Concrete scenario: a 404 with a JSON body and zero retries rejects with the
// status error and reflects the same error into state.
func TestQuery_NotFoundReflectedInState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	q := NewQuery(server.URL, DefaultConfig())
	defer q.Close()

	_, err := q.Execute(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Data.(map[string]any)["error"])

	state := q.State()
	assert.False(t, state.Loading)
	assert.Same(t, apiErr, state.Error, "State reflects the rejected error")
}

func TestQuery_EmptyURLRejectsWithoutLoading(t *testing.T) {
	var calls atomic.Int32
	cfg := DefaultConfig().WithTransport(transportFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(200, `{}`), nil
	}))

	q := NewQuery("   ", cfg)
	defer q.Close()

	_, err := q.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Zero(t, calls.Load())

	state := q.State()
	assert.False(t, state.Loading, "Validation failures never set loading")
	require.NotNil(t, state.Error)
	assert.Equal(t, ErrorTypeValidation, state.Error.Type)
}

func TestQuery_Reset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"n":1}`))
	}))
	defer server.Close()

	q := NewQuery(server.URL, DefaultConfig())
	defer q.Close()

	_, err := q.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, q.State().Data)

	q.Reset()
	assert.Equal(t, State{}, q.State(), "Reset restores the initial state")
}

func TestQuery_CancelKeepsDataAndError(t *testing.T) {
	transport := newGatedTransport()
	q := NewQuery("http://localhost/x", DefaultConfig().WithTransport(transport))
	defer q.Close()

	// Land one success so Data is populated.
	done := make(chan struct{})
	go func() {
		q.Execute(context.Background())
		close(done)
	}()
	<-transport.entered
	transport.proceed <- `"seed"`
	<-done

	// Start a second call and cancel it mid-flight.
	settled := make(chan error, 1)
	go func() {
		_, err := q.Execute(context.Background())
		settled <- err
	}()
	<-transport.entered
	q.Cancel()

	state := q.State()
	assert.False(t, state.Loading, "Cancel forces loading off")
	assert.Equal(t, "seed", state.Data, "Cancel leaves data untouched")
	assert.Nil(t, state.Error, "Cancel leaves error untouched")

	// The aborted call still resolves to its caller, but its outcome is
	// discarded rather than recorded.
	transport.proceed <- `"late"`
	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("cancelled call never settled")
	}
	assert.Equal(t, "seed", q.State().Data)
}

func TestQuery_SingleFlightSupersede(t *testing.T) {
	transport := newGatedTransport()
	q := NewQuery("http://localhost/x", DefaultConfig().WithTransport(transport))
	defer q.Close()

	firstDone := make(chan struct{})
	var firstData any
	var firstErr error
	go func() {
		firstData, firstErr = q.Execute(context.Background())
		close(firstDone)
	}()
	<-transport.entered

	// Second call supersedes the first.
	secondDone := make(chan struct{})
	go func() {
		q.Execute(context.Background())
		close(secondDone)
	}()
	<-transport.entered
	transport.proceed <- `"second"`
	<-secondDone
	assert.Equal(t, "second", q.State().Data)

	// Resolve the superseded call only now. Its resolution reaches its
	// caller but must not touch state.
	transport.proceed <- `"first"`
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("superseded call never settled")
	}
	require.NoError(t, firstErr)
	assert.Equal(t, "first", firstData, "Superseded caller still gets its resolution")
	assert.Equal(t, "second", q.State().Data, "Only the last-issued call writes state")
}

func TestQuery_UnmountSafety(t *testing.T) {
	transport := newGatedTransport()
	q := NewQuery("http://localhost/x", DefaultConfig().WithTransport(transport))

	done := make(chan struct{})
	go func() {
		q.Execute(context.Background())
		close(done)
	}()
	<-transport.entered

	q.Close()
	transport.proceed <- `"late"`

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("in-flight call never settled after close")
	}
	assert.Equal(t, State{}, q.State(), "A closed handle's state is frozen")
}

func TestQuery_LatestConfigWins(t *testing.T) {
	var seen []string
	transport := transportFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.Header.Get("X-Variant"))
		return jsonResponse(200, `{}`), nil
	})

	q := NewQuery("http://localhost/x", DefaultConfig().WithTransport(transport).WithHeader("X-Variant", "one"))
	defer q.Close()

	_, err := q.Execute(context.Background())
	require.NoError(t, err)

	q.SetConfig(DefaultConfig().WithTransport(transport).WithHeader("X-Variant", "two"))
	_, err = q.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, seen, "Config slot is re-read on every call")
}

func TestQuery_CallbacksFireOncePerCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var successes, failures atomic.Int32
	cfg := DefaultConfig().WithCallbacks(
		func(any) { successes.Add(1) },
		func(*APIError) { failures.Add(1) },
	)

	q := NewQuery(server.URL, cfg)
	defer q.Close()

	_, err := q.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), successes.Load())
	assert.Zero(t, failures.Load())
}

func TestQuery_CallbackPanicIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	logger := &recordingLogger{}
	cfg := DefaultConfig().
		WithLogger(logger).
		WithCallbacks(func(any) { panic("caller bug") }, nil)

	q := NewQuery(server.URL, cfg)
	defer q.Close()

	data, err := q.Execute(context.Background())
	require.NoError(t, err, "A panicking callback must not corrupt the call outcome")
	assert.NotNil(t, data)
	assert.Equal(t, 1, logger.warns(), "Callback panic is logged")
	assert.Nil(t, q.State().Error)
}
