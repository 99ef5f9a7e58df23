package httpbin

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// recovery turns a handler panic into a logged 500 JSON answer.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", RequestIDFromContext(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				writeError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// requestID keeps the caller's X-Request-ID or assigns a UUID v4, and
// echoes it back so clients can correlate retries with server logs.
func requestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// routePattern returns the chi route that served r, or "" before routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// tracing opens a server span per request, continuing the client's W3C
// trace context. Once routed, the span is renamed after the chi pattern so
// /status/503 and /status/418 share one span name.
func tracing(tp trace.TracerProvider, serviceName string) func(http.Handler) http.Handler {
	tracer := tp.Tracer("github.com/kroma-labs/weblib/httpbin")

	propagator := otel.GetTextMapPropagator()
	if len(propagator.Fields()) == 0 {
		propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.ServiceName(serviceName),
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.ServerAddress(r.Host),
					semconv.UserAgentOriginal(r.UserAgent()),
					semconv.ClientAddress(r.RemoteAddr),
					attribute.Bool("httpbin.has_auth", r.Header.Get("Authorization") != ""),
					attribute.String("request.id", RequestIDFromContext(ctx)),
				),
			)
			defer span.End()

			rw := wrapResponseWriter(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rw, r)

			if route := routePattern(r); route != "" {
				span.SetName("HTTP " + r.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}
			span.SetAttributes(semconv.HTTPResponseStatusCode(rw.Status()))
			if rw.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.Status()))
			}
		})
	}
}

// requestLogger writes one line per request at a level picked by status:
// info, warn for 4xx, error for 5xx. Paths in skip are not logged.
// Credentials are never logged; has_auth only tells they were sent.
func requestLogger(logger zerolog.Logger, serviceName string, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipped[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)

			level := zerolog.InfoLevel
			switch status := rw.Status(); {
			case status >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case status >= http.StatusBadRequest:
				level = zerolog.WarnLevel
			}

			event := logger.WithLevel(level).
				Str("service", serviceName).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Int("bytes", rw.BytesWritten()).
				Str("remote_addr", r.RemoteAddr).
				Bool("has_auth", r.Header.Get("Authorization") != "")

			if route := routePattern(r); route != "" {
				event = event.Str("route", route)
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				event = event.Str("request_id", id)
			}

			event.Msg("request completed")
		})
	}
}
