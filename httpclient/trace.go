package httpclient

import (
	"context"
	"crypto/tls"
	"net/http/httptrace"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// phase is one timed step of connection setup.
type phase struct {
	start, done time.Time
}

func (p *phase) begin() {
	if p.start.IsZero() {
		p.start = time.Now()
	}
}

func (p *phase) end() { p.done = time.Now() }

func (p phase) complete() bool { return !p.start.IsZero() && !p.done.IsZero() }

func (p phase) duration() time.Duration { return p.done.Sub(p.start) }

// networkTrace collects connection timings of one round trip.
// Dial callbacks may run on parallel goroutines when several addresses are
// tried, so every field is guarded by mu.
type networkTrace struct {
	mu sync.Mutex

	dns     phase
	connect phase
	tls     phase

	gotConn    time.Time
	reused     bool
	remoteAddr string
	firstByte  time.Time
}

func (nt *networkTrace) update(fn func()) {
	nt.mu.Lock()
	fn()
	nt.mu.Unlock()
}

// createClientTrace returns the httptrace hooks feeding nt.
func createClientTrace(nt *networkTrace) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart:          func(httptrace.DNSStartInfo) { nt.update(nt.dns.begin) },
		DNSDone:           func(httptrace.DNSDoneInfo) { nt.update(nt.dns.end) },
		ConnectStart:      func(_, _ string) { nt.update(nt.connect.begin) },
		ConnectDone:       func(_, _ string, _ error) { nt.update(nt.connect.end) },
		TLSHandshakeStart: func() { nt.update(nt.tls.begin) },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { nt.update(nt.tls.end) },
		GotConn: func(info httptrace.GotConnInfo) {
			nt.update(func() {
				nt.gotConn = time.Now()
				nt.reused = info.Reused
				if info.Conn != nil && info.Conn.RemoteAddr() != nil {
					nt.remoteAddr = info.Conn.RemoteAddr().String()
				}
			})
		},
		GotFirstResponseByte: func() {
			nt.update(func() { nt.firstByte = time.Now() })
		},
	}
}

// addTraceEvents adds one span event per completed phase.
func (nt *networkTrace) addTraceEvents(span trace.Span) {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	for _, p := range []struct {
		event string
		attr  string
		phase phase
	}{
		{"dns.done", "dns.duration_ms", nt.dns},
		{"connect.done", "connect.duration_ms", nt.connect},
		{"tls.done", "tls.duration_ms", nt.tls},
	} {
		if !p.phase.complete() {
			continue
		}
		span.AddEvent(p.event, trace.WithTimestamp(p.phase.done),
			trace.WithAttributes(attribute.Float64(p.attr, ms(p.phase.duration()))),
		)
	}

	if !nt.gotConn.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConn),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.reused),
				attribute.String("network.peer.address", nt.remoteAddr),
			))
	}

	if !nt.firstByte.IsZero() {
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte))
	}
}

// recordTimingMetrics records the DNS and TLS histograms.
func (nt *networkTrace) recordTimingMetrics(ctx context.Context, m *metrics, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}

	nt.mu.Lock()
	dns, handshake := nt.dns, nt.tls
	nt.mu.Unlock()

	if dns.complete() {
		m.recordDNSDuration(ctx, dns.duration(), attrs)
	}
	if handshake.complete() {
		m.recordTLSDuration(ctx, handshake.duration(), attrs)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// errorTypeFromStatusCode returns the status code as error.type for 4xx/5xx.
func errorTypeFromStatusCode(statusCode int) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	return ""
}

// setSpanError marks the span failed and tags it with the network reason.
func setSpanError(span trace.Span, err error, reason string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if reason != "" {
		span.SetAttributes(attribute.String("error.type", reason))
	}
}
