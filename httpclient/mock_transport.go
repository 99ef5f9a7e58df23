package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// MockOutcome is one scripted answer of a MockTransport.
type MockOutcome struct {
	// StatusCode of the response. Ignored when Err is set.
	StatusCode int

	// Body of the response.
	Body string

	// Header of the response.
	Header http.Header

	// Err fails the round trip instead of answering.
	Err error

	// Delay holds the answer back. The request context still applies, so a
	// Delay longer than the attempt deadline produces a timeout.
	Delay time.Duration
}

// MockTransport provides a configurable http.RoundTripper for testing.
// It allows stubbing responses and verifying request expectations.
//
// Example - a flaky endpoint failing once, then answering:
//
//	mock := httpclient.NewMockTransport().StubSequence(
//	    httpclient.MockOutcome{Err: syscall.ECONNREFUSED},
//	    httpclient.MockOutcome{StatusCode: 200, Body: "ok"},
//	)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.RWMutex
	sequence    []MockOutcome
	seqIndex    int
	stubs       []stub
	defaultOut  *MockOutcome
	requests    []*http.Request
	requestHook func(*http.Request)

	openBodies atomic.Int64
}

type stub struct {
	matcher func(*http.Request) bool
	outcome MockOutcome
}

// NewMockTransport creates a new MockTransport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse stubs all requests to return the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultOut = &MockOutcome{StatusCode: statusCode, Body: body}
	return m
}

// StubError stubs all requests to return the given error.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultOut = &MockOutcome{Err: err}
	return m
}

// StubSequence scripts the answers of consecutive requests, one outcome per
// request in order. Once the sequence is used up its last outcome repeats.
// A sequence takes precedence over every other stub.
func (m *MockTransport) StubSequence(outcomes ...MockOutcome) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append([]MockOutcome(nil), outcomes...)
	m.seqIndex = 0
	return m
}

// StubPath stubs requests matching the path to return the given response.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubPathRegex stubs requests matching the path regex to return the given response.
func (m *MockTransport) StubPathRegex(pattern string, statusCode int, body string) *MockTransport {
	re := regexp.MustCompile(pattern)
	return m.StubFunc(func(req *http.Request) bool {
		return re.MatchString(req.URL.Path)
	}, statusCode, body)
}

// StubMethod stubs requests with the given method to return the given response.
func (m *MockTransport) StubMethod(method string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.Method == method
	}, statusCode, body)
}

// StubFunc stubs requests matching the predicate to return the given response.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	return m.StubOutcome(matcher, MockOutcome{StatusCode: statusCode, Body: body})
}

// StubFuncError stubs requests matching the predicate to return the given error.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	return m.StubOutcome(matcher, MockOutcome{Err: err})
}

// StubOutcome stubs requests matching the predicate with a full outcome.
func (m *MockTransport) StubOutcome(matcher func(*http.Request) bool, out MockOutcome) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, outcome: out})
	return m
}

// OnRequest sets a hook that is called for each request.
// Useful for assertions or capturing request details.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	hook := m.requestHook
	out, found := m.match(req)
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if !found {
		return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
	}

	if out.Delay > 0 {
		timer := time.NewTimer(out.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if out.Err != nil {
		return nil, out.Err
	}

	return m.respond(req, out), nil
}

// match picks the outcome for req. The caller holds m.mu.
func (m *MockTransport) match(req *http.Request) (MockOutcome, bool) {
	if len(m.sequence) > 0 {
		i := m.seqIndex
		if i >= len(m.sequence) {
			i = len(m.sequence) - 1
		} else {
			m.seqIndex++
		}
		return m.sequence[i], true
	}

	// First match wins.
	for _, s := range m.stubs {
		if s.matcher(req) {
			return s.outcome, true
		}
	}

	if m.defaultOut != nil {
		return *m.defaultOut, true
	}
	return MockOutcome{}, false
}

// respond builds a fresh response so a stub can be served any number of times.
func (m *MockTransport) respond(req *http.Request, out MockOutcome) *http.Response {
	header := out.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	status := out.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	m.openBodies.Add(1)
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          &trackedBody{Reader: bytes.NewReader([]byte(out.Body)), open: &m.openBodies},
		ContentLength: int64(len(out.Body)),
		Request:       req,
	}
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// OpenBodies returns how many response bodies were handed out and not closed.
func (m *MockTransport) OpenBodies() int {
	return int(m.openBodies.Load())
}

// Reset clears all recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.sequence = nil
	m.seqIndex = 0
	m.defaultOut = nil
	m.requestHook = nil
}

// trackedBody decrements the open-body count exactly once on Close.
type trackedBody struct {
	io.Reader
	open   *atomic.Int64
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.open.Add(-1)
	}
	return nil
}

// WithMockTransport routes every request of the client through mock.
// It is shorthand for WithTransport(mock).
func WithMockTransport(mock *MockTransport) Option {
	return WithTransport(mock)
}
