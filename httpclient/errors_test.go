package httpclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  ErrorType
		want string
	}{
		{name: "given transport, then names it", typ: ErrorTypeTransport, want: "transport error"},
		{name: "given timeout, then names it", typ: ErrorTypeTimeout, want: "timeout error"},
		{name: "given decode, then names it", typ: ErrorTypeDecode, want: "decode error"},
		{name: "given auth, then names it", typ: ErrorTypeAuth, want: "auth error"},
		{name: "given zero value, then unknown", typ: 0, want: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "given all fields, then formats each",
			err: &Error{
				Type:    ErrorTypeTimeout,
				Op:      opFetchWithRetries,
				URL:     "http://example.com",
				Attempt: 2,
				Err:     context.DeadlineExceeded,
			},
			want: "timeout error: FetchWithRetries http://example.com (attempt 2): context deadline exceeded",
		},
		{
			name: "given auth failure, then includes status",
			err: &Error{
				Type:       ErrorTypeAuth,
				Op:         opFetchWithBasicAuth,
				URL:        "http://example.com",
				StatusCode: 401,
				Err:        errAuthRejected,
			},
			want: "auth error: FetchWithBasicAuth http://example.com status 401: server rejected the credentials",
		},
		{
			name: "given type only, then prints type",
			err:  &Error{Type: ErrorTypeDecode},
			want: "decode error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	err := &Error{Type: ErrorTypeTimeout, Err: context.DeadlineExceeded}
	wrapped := fmt.Errorf("outer: %w", err)

	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.True(t, IsTimeoutError(wrapped))
	assert.False(t, IsTransportError(wrapped))
}

func TestRetryError(t *testing.T) {
	t.Parallel()

	first := &Error{Type: ErrorTypeTransport, Attempt: 1, Reason: ReasonConnectionRefused, Err: errors.New("refused")}
	second := &Error{Type: ErrorTypeTimeout, Attempt: 2, Reason: ReasonTimeout, Err: context.DeadlineExceeded}
	third := &Error{Type: ErrorTypeTimeout, Attempt: 3, Reason: ReasonTimeout, Err: context.DeadlineExceeded}

	t.Run("given exhausted sequence, then last failure wins", func(t *testing.T) {
		err := &RetryError{
			Op:          opFetchWithRetries,
			URL:         "http://example.com",
			MaxAttempts: 3,
			Failures:    []*Error{first, second, third},
		}

		assert.Equal(t, third, err.Last())
		assert.Equal(t, 3, err.Attempts())
		assert.True(t, err.Exhausted())
		assert.True(t, IsTimeoutError(err))
		assert.False(t, IsTransportError(err))
		assert.Equal(t, map[ErrorType]int{ErrorTypeTransport: 1, ErrorTypeTimeout: 2}, err.Histogram())
		assert.Equal(t, map[string]int{ReasonConnectionRefused: 1, ReasonTimeout: 2}, err.Reasons())
		assert.Contains(t, err.Error(), "3 of 3 attempts failed")
	})

	t.Run("given early stop, then not exhausted", func(t *testing.T) {
		err := &RetryError{MaxAttempts: 3, Failures: []*Error{first}}

		assert.False(t, err.Exhausted())
		assert.True(t, IsTransportError(err))

		var got *Error
		require.ErrorAs(t, err, &got)
		assert.Equal(t, first, got)
	})

	t.Run("given no failures, then unwraps to nil", func(t *testing.T) {
		err := &RetryError{Op: opFetchWithRetries, URL: "u", MaxAttempts: 1}

		assert.Nil(t, err.Last())
		assert.NoError(t, err.Unwrap())
		assert.Contains(t, err.Error(), "no attempt was made")

		_, ok := TypeOf(err)
		assert.False(t, ok)
	})
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		want   ErrorType
		wantOK bool
	}{
		{name: "given typed error, then returns type", err: &Error{Type: ErrorTypeDecode}, want: ErrorTypeDecode, wantOK: true},
		{name: "given plain error, then not ok", err: errors.New("plain")},
		{name: "given nil, then not ok", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TypeOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
