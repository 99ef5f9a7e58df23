package httpclient

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the instruments of one Client. A nil *metrics records nothing.
type metrics struct {
	// round trips
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter

	// connection setup
	dnsDuration metric.Float64Histogram
	tlsDuration metric.Float64Histogram

	// retry sequences
	retryAttempts  metric.Int64Counter
	retryExhausted metric.Int64Counter
	retryDuration  metric.Float64Histogram

	breakerRequests metric.Int64Counter
}

var (
	// requestBuckets follow the OTel HTTP client duration recommendation.
	requestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10}
	setupBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	retryBuckets   = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// newMetrics creates every instrument on meter. Creation errors are joined.
func newMetrics(meter metric.Meter) (*metrics, error) {
	var errs []error

	seconds := func(name, desc string, buckets []float64) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		errs = append(errs, err)
		return h
	}
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}

	active, err := meter.Int64UpDownCounter("http.client.active_requests",
		metric.WithDescription("Number of in-flight HTTP client round trips"),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	m := &metrics{
		requestDuration: seconds("http.client.request.duration",
			"Duration of one HTTP client round trip", requestBuckets),
		requestErrors: counter("http.client.request.error",
			"Round trips that failed before a response, by reason", "{error}"),
		activeRequests: active,

		dnsDuration: seconds("http.client.dns.duration", "DNS lookup duration", setupBuckets),
		tlsDuration: seconds("http.client.tls.duration", "TLS handshake duration", setupBuckets),

		retryAttempts: counter("http.client.retry.attempts",
			"Failed attempts inside retry sequences", "{attempt}"),
		retryExhausted: counter("http.client.retry.exhausted",
			"Retry sequences that failed on every attempt", "{request}"),
		retryDuration: seconds("http.client.retry.duration",
			"Duration of a whole retry sequence", retryBuckets),

		breakerRequests: counter("http.client.breaker.requests",
			"Round trips seen by the circuit breaker, by state and outcome", "{request}"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// with returns attrs followed by extra without aliasing attrs.
func with(attrs []attribute.KeyValue, extra ...attribute.KeyValue) metric.MeasurementOption {
	all := make([]attribute.KeyValue, 0, len(attrs)+len(extra))
	all = append(all, attrs...)
	all = append(all, extra...)
	return metric.WithAttributes(all...)
}

func (m *metrics) recordRequestDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, d.Seconds(), with(attrs))
}

// recordError counts a round trip that produced no response.
func (m *metrics) recordError(ctx context.Context, reason string, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.requestErrors.Add(ctx, 1, with(attrs, attribute.String("error.type", reason)))
}

func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, with(attrs))
}

func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, with(attrs))
}

func (m *metrics) recordDNSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.dnsDuration.Record(ctx, d.Seconds(), with(attrs))
}

func (m *metrics) recordTLSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.tlsDuration.Record(ctx, d.Seconds(), with(attrs))
}

// recordRetryAttempt counts one failed attempt of a retry sequence.
func (m *metrics) recordRetryAttempt(ctx context.Context, attrs []attribute.KeyValue, attempt int, kind ErrorType) {
	if m == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, with(attrs,
		attribute.Int("retry.attempt", attempt),
		attribute.String("weblib.error.kind", kind.String()),
	))
}

func (m *metrics) recordRetryExhausted(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, with(attrs))
}

func (m *metrics) recordRetryDuration(ctx context.Context, attrs []attribute.KeyValue, d time.Duration) {
	if m == nil {
		return
	}
	m.retryDuration.Record(ctx, d.Seconds(), with(attrs))
}

func (m *metrics) recordBreakerRequest(ctx context.Context, attrs []attribute.KeyValue, state, outcome string) {
	if m == nil {
		return
	}
	m.breakerRequests.Add(ctx, 1, with(attrs,
		attribute.String("breaker.state", state),
		attribute.String("breaker.outcome", outcome),
	))
}
