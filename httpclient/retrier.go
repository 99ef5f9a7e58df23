package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FetchWithRetries issues a GET to url up to policy.MaxAttempts times and
// returns the response of the first attempt that completes a round trip.
//
// Every attempt is bounded by policy.PerAttemptTimeout on its own. Transport
// failures and timeouts both count as failed attempts; status codes are not
// inspected, so a 500 is a successful attempt. There is no pause between
// attempts unless policy.BackOff says otherwise.
//
// When no attempt succeeds the error is a *RetryError holding every
// attempt's failure; errors.Is and errors.As on it see the last one.
// Cancelling ctx stops the sequence after the attempt in flight.
//
// Example:
//
//	resp, err := client.FetchWithRetries(ctx, "https://api.example.com/health",
//	    httpclient.RetryPolicy{MaxAttempts: 3, PerAttemptTimeout: time.Second})
//	if httpclient.IsTimeoutError(err) {
//	    // the last attempt timed out
//	}
func (c *Client) FetchWithRetries(ctx context.Context, url string, policy RetryPolicy) (*Response, error) {
	maxAttempts := policy.attempts()
	target := redactURL(url)
	attrs := c.config.baseAttributes()
	start := time.Now()

	ctx, span := c.config.Tracer.Start(ctx, "weblib "+opFetchWithRetries,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("url.full", target),
			attribute.Int("weblib.retry.max_attempts", int(maxAttempts)),
			attribute.Int64("weblib.retry.per_attempt_timeout_ms", policy.PerAttemptTimeout.Milliseconds()),
		),
	)
	defer span.End()
	defer func() {
		c.config.Metrics.recordRetryDuration(ctx, attrs, time.Since(start))
	}()

	req := Request{Method: http.MethodGet, URL: url}
	failures := make([]*Error, 0, maxAttempts)
	attempt := 0

	operation := func() (*Response, error) {
		attempt++
		resp, failure := c.attempt(ctx, req, attempt, policy.PerAttemptTimeout)
		if failure != nil {
			failures = append(failures, failure)
			span.AddEvent("weblib.retry", trace.WithAttributes(
				attribute.Int("retry.attempt", attempt),
				attribute.String("weblib.error.kind", failure.Type.String()),
				attribute.String("error.type", failure.Reason),
			))
			c.config.Metrics.recordRetryAttempt(ctx, attrs, attempt, failure.Type)
			return nil, failure
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(_ error, wait time.Duration) {
			if c.debug {
				logRetry(c.logger, failures[len(failures)-1], int(maxAttempts), wait)
			}
		}),
	)
	if err == nil {
		span.SetAttributes(
			attribute.Int("weblib.retry.attempts", attempt),
			attribute.Int("http.response.status_code", resp.StatusCode),
		)
		return resp, nil
	}

	retryErr := &RetryError{
		Op:          opFetchWithRetries,
		URL:         target,
		MaxAttempts: int(maxAttempts),
		Failures:    failures,
	}

	span.SetAttributes(attribute.Int("weblib.retry.attempts", retryErr.Attempts()))
	var reason string
	if last := retryErr.Last(); last != nil {
		reason = last.Reason
	}
	setSpanError(span, retryErr, reason)

	if retryErr.Exhausted() {
		c.config.Metrics.recordRetryExhausted(ctx, attrs)
	}

	return nil, retryErr
}

// attempt runs one attempt of a retry sequence under its own deadline.
func (c *Client) attempt(ctx context.Context, req Request, n int, timeout time.Duration) (*Response, *Error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.execute(ctx, opFetchWithRetries, req, n)
}
