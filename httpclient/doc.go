// Package httpclient issues plain HTTP GET and POST requests and returns the
// response body as text, with optional raw query strings, HTTP Basic
// authentication and a bounded retry-with-timeout sequence.
//
// # Features
//
//   - One round trip per call; the body is fully read and closed before returning
//   - Typed errors: transport, timeout, decode and auth
//   - FetchWithRetries with a per-attempt timeout and every failure kept
//   - OpenTelemetry tracing and metrics on every round trip
//   - Optional rate limiting and circuit breaking (local or Redis-backed)
//   - MockTransport for tests
//
// # Quick Start
//
// One-off calls build and release their own client:
//
//	body, err := httpclient.FetchText(ctx, "https://httpbin.org/ip")
//
//	body, err := httpclient.FetchWithQuery(ctx, "https://httpbin.org/get", "key1=value1&key2=value2")
//
//	body, err := httpclient.Post(ctx, "https://httpbin.org/post", []byte("key1=value1&key2=value2"))
//
//	body, err := httpclient.FetchWithBasicAuth(ctx, "https://httpbin.org/basic-auth/user/passwd", "user", "passwd")
//
// A long-lived Client reuses connections and carries configuration:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("my-service"),
//	    httpclient.WithConfig(httpclient.LowLatencyConfig()),
//	)
//	defer client.Close()
//
// # Retries
//
// FetchWithRetries makes up to MaxAttempts attempts, each bounded by
// PerAttemptTimeout, and returns the first response that arrives. Status
// codes are not inspected. Attempts follow each other immediately unless a
// backoff.BackOff is set on the policy.
//
//	resp, err := client.FetchWithRetries(ctx, url, httpclient.RetryPolicy{
//	    MaxAttempts:       3,
//	    PerAttemptTimeout: time.Second,
//	})
//
// On failure the error is a *RetryError. errors.As and the Is*Error helpers
// see the last attempt's failure; Failures, Histogram and Reasons expose all
// of them:
//
//	var retryErr *httpclient.RetryError
//	if errors.As(err, &retryErr) {
//	    fmt.Println(retryErr.Attempts(), retryErr.Reasons())
//	}
//
// # Authentication
//
// FetchWithBasicAuth returns the body whatever the status. Build the client
// with WithAuthCheck(true) to turn 401 and 403 answers into auth errors.
// Credentials never appear in logs, spans or error messages.
//
// # Observability
//
// Each round trip gets an "HTTP {method}" client span and request metrics;
// each retry sequence gets an internal span with one "weblib.retry" event
// per failed attempt. Providers default to the otel globals.
//
// Metrics:
//
//	http.client.request.duration   - round trip latency
//	http.client.request.error      - failed round trips by error.type
//	http.client.active_requests    - in-flight round trips
//	http.client.dns.duration       - DNS lookup latency
//	http.client.tls.duration       - TLS handshake latency
//	http.client.retry.attempts     - failed attempts inside retry sequences
//	http.client.retry.exhausted    - sequences that used their whole budget
//	http.client.retry.duration     - retry sequence latency
//	http.client.breaker.requests   - circuit breaker outcomes
//
// Debug logging goes to the zerolog logger given with WithLogger:
//
//	client := httpclient.New(
//	    httpclient.WithLogger(zerolog.New(os.Stderr)),
//	    httpclient.WithDebug(true),
//	)
//
// # Testing
//
// Route a client through a MockTransport to script answers per attempt:
//
//	mock := httpclient.NewMockTransport().StubSequence(
//	    httpclient.MockOutcome{Err: errA},
//	    httpclient.MockOutcome{Err: errB},
//	)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
package httpclient
