package querystate

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// recordingLogger captures Warn/Error calls for assertions.
type recordingLogger struct {
	mu        sync.Mutex
	warnMsgs  []string
	errorMsgs []string
}

func (l *recordingLogger) Warn(msg string, details ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnMsgs = append(l.warnMsgs, msg)
}

func (l *recordingLogger) Error(msg string, details ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}

func (l *recordingLogger) warns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnMsgs)
}

// recordingObserver captures lifecycle hooks for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	starts   int
	ends     int
	attempts []int
}

func (o *recordingObserver) OnRequestStart(method, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordingObserver) OnRequestEnd(method, url string, status int, duration time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ends++
}

func (o *recordingObserver) OnRetryAttempt(method, url string, attempt int, delay time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, attempt)
}

func (o *recordingObserver) retryAttempts() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.attempts...)
}

func (o *recordingObserver) requestEnds() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ends
}

// gatedTransport serves JSON payloads one request at a time. Each incoming
// request signals entered and then blocks until a value is sent on proceed,
// ignoring request-context cancellation so tests can resolve superseded
// calls after their successors completed.
type gatedTransport struct {
	entered chan struct{}
	proceed chan string
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{
		entered: make(chan struct{}, 16),
		proceed: make(chan string, 16),
	}
}

func (g *gatedTransport) Do(req *http.Request) (*http.Response, error) {
	g.entered <- struct{}{}
	body := <-g.proceed
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}
