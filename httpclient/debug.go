package httpclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// logRequest logs an outgoing request at debug level.
// Only the presence of credentials is logged, never their value.
func logRequest(logger zerolog.Logger, req *http.Request, op string, attempt int) {
	logger.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("attempt", attempt).
		Bool("has_auth", req.Header.Get("Authorization") != "").
		Int64("content_length", req.ContentLength).
		Msg("http request")
}

// logResponse logs a fully-read response at debug level.
func logResponse(logger zerolog.Logger, resp *Response, op string, duration time.Duration) {
	logger.Debug().
		Str("op", op).
		Str("url", resp.url).
		Int("attempt", resp.attempt).
		Int("status", resp.StatusCode).
		Str("proto", resp.Proto).
		Int("body_size", len(resp.body)).
		Dur("duration", duration).
		Msg("http response")
}

// logFailure logs a failed round trip at debug level.
func logFailure(logger zerolog.Logger, failure *Error, duration time.Duration) {
	logger.Debug().
		Str("op", failure.Op).
		Str("url", failure.URL).
		Int("attempt", failure.Attempt).
		Str("kind", failure.Type.String()).
		Str("reason", failure.Reason).
		Dur("duration", duration).
		Err(failure.Err).
		Msg("http request failed")
}

// logRetry logs a failed attempt that will be followed by another one.
func logRetry(logger zerolog.Logger, failure *Error, maxAttempts int, wait time.Duration) {
	logger.Debug().
		Str("op", failure.Op).
		Str("url", failure.URL).
		Int("attempt", failure.Attempt).
		Int("max_attempts", maxAttempts).
		Str("kind", failure.Type.String()).
		Str("reason", failure.Reason).
		Dur("wait", wait).
		Msg("retrying request")
}
