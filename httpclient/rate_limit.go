package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// RateLimitConfig caps how fast one Client issues round trips.
//
// Every round trip takes one token, retry attempts included, so a retry
// sequence can never exceed the configured rate.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. 0 disables the limiter.
	RequestsPerSecond float64

	// Burst is the number of round trips allowed back to back.
	// Values below 1 are treated as 1.
	Burst int

	// WaitOnLimit makes a round trip wait for its token. The wait is
	// refused up front when it would outlast the request context.
	// When false, a round trip without a token fails with ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 100 requests per second with a burst of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             10,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited reports a round trip refused by the client's limiter.
// It reaches callers wrapped in a transport *Error with reason "rate_limited".
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitTransport takes a token before handing the request on.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

func newRateLimitTransport(next http.RoundTripper, cfg RateLimitConfig) http.RoundTripper {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1)),
		wait:    cfg.WaitOnLimit,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.take(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// take blocks until a token is available or refuses the round trip.
// A non-trivial wait is recorded on the client span as "weblib.rate_limit.wait".
func (t *rateLimitTransport) take(ctx context.Context) error {
	if !t.wait {
		if !t.limiter.Allow() {
			return ErrRateLimited
		}
		return nil
	}

	start := time.Now()
	err := t.limiter.Wait(ctx)
	waited := time.Since(start)

	switch {
	case err == nil:
		if waited >= time.Millisecond {
			trace.SpanFromContext(ctx).AddEvent("weblib.rate_limit.wait",
				trace.WithAttributes(attribute.Float64("weblib.rate_limit.wait_ms", ms(waited))),
			)
		}
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// Wait refuses when the next token lies past the context deadline.
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
}
