package httpclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a failed request.
//
// The set is closed: every error returned by this package is either an
// *Error carrying one of these types or a *RetryError whose last failure does.
type ErrorType int

const (
	// ErrorTypeTransport covers connection refused, DNS and TLS failures,
	// malformed URLs and any other failure to complete the round trip.
	ErrorTypeTransport ErrorType = iota + 1

	// ErrorTypeTimeout means the request exceeded its deadline
	// (the per-attempt timeout in a retry sequence, or the client timeout).
	ErrorTypeTimeout

	// ErrorTypeDecode means the response body could not be read as text.
	ErrorTypeDecode

	// ErrorTypeAuth means the server rejected the supplied credentials.
	// Only produced when the client is built with WithAuthCheck(true).
	ErrorTypeAuth
)

// String returns the human-readable name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransport:
		return "transport error"
	case ErrorTypeTimeout:
		return "timeout error"
	case ErrorTypeDecode:
		return "decode error"
	case ErrorTypeAuth:
		return "auth error"
	default:
		return "unknown error"
	}
}

// errAuthRejected is the cause of an auth error.
var errAuthRejected = errors.New("server rejected the credentials")

// Error is the typed failure returned by every request operation.
//
// Example:
//
//	body, err := client.FetchText(ctx, "https://api.example.com/status")
//	var reqErr *httpclient.Error
//	if errors.As(err, &reqErr) && reqErr.Type == httpclient.ErrorTypeTimeout {
//	    // slow upstream
//	}
type Error struct {
	// Type is the failure class.
	Type ErrorType

	// Op is the operation that failed, e.g. "FetchText".
	Op string

	// URL is the request target with any userinfo password redacted.
	URL string

	// Attempt is the 1-based attempt number inside a retry sequence.
	// Zero for single-shot operations.
	Attempt int

	// StatusCode is set for auth failures.
	StatusCode int

	// Reason is a short network failure reason such as "connection_refused".
	// Empty for decode and auth failures.
	Reason string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	if e.Attempt > 0 {
		fmt.Fprintf(&b, " (attempt %d)", e.Attempt)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// RetryError is returned by FetchWithRetries when no attempt succeeded.
//
// It keeps every attempt's failure in order. Unwrap yields only the last
// failure, so errors.Is and errors.As see the outcome of the most recent
// attempt:
//
//	resp, err := client.FetchWithRetries(ctx, url, policy)
//	var retryErr *httpclient.RetryError
//	if errors.As(err, &retryErr) {
//	    log.Printf("%d attempts, kinds=%v", retryErr.Attempts(), retryErr.Histogram())
//	}
type RetryError struct {
	// Op is the operation that was retried.
	Op string

	// URL is the redacted request target.
	URL string

	// MaxAttempts is the attempt budget of the sequence.
	MaxAttempts int

	// Failures holds one entry per attempt, oldest first.
	Failures []*Error
}

// Error implements error.
func (e *RetryError) Error() string {
	last := e.Last()
	if last == nil {
		return fmt.Sprintf("%s %s: no attempt was made", e.Op, e.URL)
	}
	return fmt.Sprintf("%s %s: %d of %d attempts failed, last: %s",
		e.Op, e.URL, len(e.Failures), e.MaxAttempts, last.Error())
}

// Unwrap returns the failure of the most recent attempt.
func (e *RetryError) Unwrap() error {
	if last := e.Last(); last != nil {
		return last
	}
	return nil
}

// Last returns the failure of the most recent attempt, or nil.
func (e *RetryError) Last() *Error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1]
}

// Attempts returns the number of attempts that were made.
func (e *RetryError) Attempts() int {
	return len(e.Failures)
}

// Exhausted reports whether the whole attempt budget was used.
// It is false when the caller's context stopped the sequence early.
func (e *RetryError) Exhausted() bool {
	return len(e.Failures) >= e.MaxAttempts
}

// Histogram counts failures per error type.
func (e *RetryError) Histogram() map[ErrorType]int {
	h := make(map[ErrorType]int, 2)
	for _, f := range e.Failures {
		h[f.Type]++
	}
	return h
}

// Reasons counts failures per network reason.
func (e *RetryError) Reasons() map[string]int {
	r := make(map[string]int, 2)
	for _, f := range e.Failures {
		r[f.Reason]++
	}
	return r
}

// TypeOf returns the ErrorType of err. For a *RetryError this is the type of
// the last attempt's failure.
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	return isType(err, ErrorTypeTransport)
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsDecodeError reports whether err is a body decoding failure.
func IsDecodeError(err error) bool {
	return isType(err, ErrorTypeDecode)
}

// IsAuthError reports whether err is an authentication rejection.
func IsAuthError(err error) bool {
	return isType(err, ErrorTypeAuth)
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}
