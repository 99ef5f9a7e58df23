package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Failure reasons recorded on errors, span attributes and metrics.
const (
	ReasonTimeout           = "timeout"
	ReasonConnectionRefused = "connection_refused"
	ReasonDNSError          = "dns_error"
	ReasonTLSError          = "tls_error"
	ReasonCancelled         = "cancelled"
	ReasonConnectionReset   = "connection_reset"
	ReasonEOF               = "eof"
	ReasonInvalidURL        = "invalid_url"
	ReasonRateLimited       = "rate_limited"
	ReasonCircuitOpen       = "circuit_open"
	ReasonUnknown           = "unknown"
)

// newTransportError classifies a round-trip failure into a typed *Error.
// Deadline expiry becomes ErrorTypeTimeout; everything else is a transport error.
func newTransportError(op, target string, attempt int, err error) *Error {
	reason := classifyError(err)
	typ := ErrorTypeTransport
	if reason == ReasonTimeout {
		typ = ErrorTypeTimeout
	}
	return &Error{
		Type:    typ,
		Op:      op,
		URL:     redactURL(target),
		Attempt: attempt,
		Reason:  reason,
		Err:     err,
	}
}

// classifyError returns a failure reason for the given error.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	if errors.Is(err, ErrRateLimited) {
		return ReasonRateLimited
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ReasonCircuitOpen
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSError
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ReasonTLSError
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return ReasonTLSError
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ReasonConnectionReset
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonEOF
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return ReasonInvalidURL
	}

	return classifyMessage(err)
}

// classifyMessage is a fallback for wrapped errors where type checks fail.
func classifyMessage(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return ReasonTimeout
	case strings.Contains(errStr, "connection refused"):
		return ReasonConnectionRefused
	case strings.Contains(errStr, "connection reset"):
		return ReasonConnectionReset
	case strings.Contains(errStr, "no such host"):
		return ReasonDNSError
	case strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "tls:"):
		return ReasonTLSError
	case strings.Contains(errStr, "unsupported protocol scheme") ||
		strings.Contains(errStr, "no host in request url") ||
		strings.Contains(errStr, "missing protocol scheme"):
		return ReasonInvalidURL
	case strings.Contains(errStr, "eof"):
		return ReasonEOF
	default:
		return ReasonUnknown
	}
}

// redactURL hides the password of any userinfo embedded in the URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
