package httpclient

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/kroma-labs/weblib/httpbin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newEchoServer starts an in-process httpbin for the test.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(httpbin.New(httpbin.WithLogger(zerolog.Nop())).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// telemetry collects spans and metrics recorded by a client under test.
type telemetry struct {
	reader   *sdkmetric.ManualReader
	exporter *tracetest.InMemoryExporter
	opts     []Option
}

func newTelemetry(t *testing.T) *telemetry {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})

	return &telemetry{
		reader:   reader,
		exporter: exporter,
		opts:     []Option{WithMeterProvider(mp), WithTracerProvider(tp)},
	}
}

// metric returns the named metric from a fresh collection, or nil.
func (tel *telemetry) metric(t *testing.T, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, tel.reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterTotal sums every data point of an Int64 sum.
func counterTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// spanNamed returns the first finished span with the given name.
func (tel *telemetry) spanNamed(name string) (tracetest.SpanStub, bool) {
	for _, s := range tel.exporter.GetSpans() {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.AsInterface()
	}
	return m
}
