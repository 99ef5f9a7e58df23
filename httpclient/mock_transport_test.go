package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	return req
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestMockTransport_Stubs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(*MockTransport)
		method     string
		url        string
		wantStatus int
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "given default stub, then answers every request",
			setup:      func(m *MockTransport) { m.StubResponse(201, "created") },
			method:     http.MethodGet,
			url:        "http://example.com/any",
			wantStatus: 201,
			wantBody:   "created",
		},
		{
			name:       "given path stub, then matches exact path",
			setup:      func(m *MockTransport) { m.StubPath("/users", 200, "users") },
			method:     http.MethodGet,
			url:        "http://example.com/users",
			wantStatus: 200,
			wantBody:   "users",
		},
		{
			name:       "given regex stub, then matches pattern",
			setup:      func(m *MockTransport) { m.StubPathRegex(`^/users/\d+$`, 200, "one user") },
			method:     http.MethodGet,
			url:        "http://example.com/users/42",
			wantStatus: 200,
			wantBody:   "one user",
		},
		{
			name:       "given method stub, then matches method",
			setup:      func(m *MockTransport) { m.StubMethod(http.MethodPost, 202, "accepted") },
			method:     http.MethodPost,
			url:        "http://example.com/",
			wantStatus: 202,
			wantBody:   "accepted",
		},
		{
			name: "given specific and default stubs, then specific wins",
			setup: func(m *MockTransport) {
				m.StubResponse(500, "fallback").StubPath("/ok", 200, "specific")
			},
			method:     http.MethodGet,
			url:        "http://example.com/ok",
			wantStatus: 200,
			wantBody:   "specific",
		},
		{
			name:    "given error stub, then fails the round trip",
			setup:   func(m *MockTransport) { m.StubError(errors.New("boom")) },
			method:  http.MethodGet,
			url:     "http://example.com/",
			wantErr: true,
		},
		{
			name:    "given no stub, then fails the round trip",
			setup:   func(*MockTransport) {},
			method:  http.MethodGet,
			url:     "http://example.com/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport()
			tt.setup(mock)

			resp, err := mock.RoundTrip(newRequest(t, tt.method, tt.url))

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, readAll(t, resp))
			assert.Equal(t, 1, mock.RequestCount())
		})
	}
}

func TestMockTransport_Sequence(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().
		StubResponse(500, "ignored").
		StubSequence(
			MockOutcome{Err: errors.New("first")},
			MockOutcome{StatusCode: 200, Body: "second"},
		)

	_, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/"))
	require.EqualError(t, err, "first")

	for range 3 {
		resp, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/"))
		require.NoError(t, err)
		assert.Equal(t, "second", readAll(t, resp))
	}

	assert.Equal(t, 4, mock.RequestCount())
}

func TestMockTransport_Delay(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubSequence(MockOutcome{StatusCode: 200, Delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = mock.RoundTrip(req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockTransport_Bookkeeping(t *testing.T) {
	t.Parallel()

	var seen []string
	mock := NewMockTransport().
		StubResponse(200, "ok").
		OnRequest(func(r *http.Request) { seen = append(seen, r.URL.Path) })

	assert.Nil(t, mock.LastRequest())

	r1, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/a"))
	require.NoError(t, err)
	r2, err := mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, seen)
	assert.Equal(t, "/b", mock.LastRequest().URL.Path)
	assert.Len(t, mock.Requests(), 2)
	assert.Equal(t, 2, mock.OpenBodies())

	require.NoError(t, r1.Body.Close())
	require.NoError(t, r1.Body.Close())
	assert.Equal(t, 1, mock.OpenBodies())
	require.NoError(t, r2.Body.Close())
	assert.Equal(t, 0, mock.OpenBodies())

	mock.Reset()
	assert.Equal(t, 0, mock.RequestCount())
	_, err = mock.RoundTrip(newRequest(t, http.MethodGet, "http://example.com/"))
	assert.Error(t, err)
}
