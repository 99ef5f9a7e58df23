package httpclient

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Operation names carried by errors, logs and spans.
const (
	opDo                 = "Do"
	opFetchText          = "FetchText"
	opFetchWithQuery     = "FetchWithQuery"
	opPost               = "Post"
	opFetchWithBasicAuth = "FetchWithBasicAuth"
	opFetchWithRetries   = "FetchWithRetries"
)

// Client issues requests over an instrumented transport chain.
//
// A Client is safe for concurrent use and holds no per-call state: the only
// thing shared between calls is its connection pool (and the rate limiter or
// circuit breaker, when enabled).
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("inventory-sync"),
//	    httpclient.WithConfig(httpclient.LowLatencyConfig()),
//	)
//	defer client.Close()
//
//	body, err := client.FetchText(ctx, "https://api.example.com/items")
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// base is the innermost transport, the one owning connections.
	base http.RoundTripper

	// config holds all client configuration.
	config *internalConfig

	// defaultHeaders are applied to all requests.
	defaultHeaders http.Header

	// logger receives debug output.
	logger zerolog.Logger

	// debug enables request/response logging.
	debug bool

	// authCheck promotes 401/403 on basic-auth requests to auth errors.
	authCheck bool
}

// New creates a Client with production-ready defaults and OpenTelemetry instrumentation.
//
// The transport chain, innermost first:
//   - base transport (pooled http.Transport, or WithTransport)
//   - rate limiter (WithRateLimit)
//   - circuit breaker (WithCircuitBreaker)
//   - OpenTelemetry tracing and metrics
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("my-service"),
//	    httpclient.WithLogger(logger),
//	    httpclient.WithDebug(true),
//	)
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	var base http.RoundTripper = cfg.Transport
	if base == nil {
		base = cfg.buildTransport()
	}

	return newClient(base, cfg)
}

// WrapClient builds a Client on top of an existing http.Client's transport.
// The given http.Client is not modified.
// If the client has no transport, http.DefaultTransport is used.
//
// Example:
//
//	client := httpclient.WrapClient(legacyClient,
//	    httpclient.WithServiceName("my-service"),
//	)
func WrapClient(httpClient *http.Client, opts ...Option) *Client {
	cfg := newConfig(opts...)

	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := newClient(base, cfg)
	c.httpClient.Timeout = httpClient.Timeout
	c.httpClient.CheckRedirect = httpClient.CheckRedirect
	c.httpClient.Jar = httpClient.Jar
	return c
}

func newClient(base http.RoundTripper, cfg *internalConfig) *Client {
	var rt http.RoundTripper = base
	if cfg.RateLimit != nil {
		rt = newRateLimitTransport(rt, *cfg.RateLimit)
	}
	rt = newCircuitBreakerTransport(rt, cfg)
	rt = newOtelTransport(rt, cfg)

	return &Client{
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   cfg.httpConfig.Timeout,
		},
		base:           base,
		config:         cfg,
		defaultHeaders: cfg.DefaultHeaders,
		logger:         cfg.Logger,
		debug:          cfg.Debug,
		authCheck:      cfg.AuthCheck,
	}
}

// HTTP returns the underlying instrumented *http.Client, e.g. to hand to a
// third-party library that expects one.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Close releases idle connections held by the client.
// In-flight requests are not affected and the client stays usable.
func (c *Client) Close() {
	if ci, ok := c.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

// Do performs exactly one round trip for req and returns the fully-read response.
// The status code is not inspected.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, failure := c.execute(ctx, opDo, req, 0)
	if failure != nil {
		return nil, failure
	}
	return resp, nil
}

// FetchText issues a GET to url and returns the body as text, whatever
// the status code.
//
// Example:
//
//	body, err := client.FetchText(ctx, "https://httpbin.org/ip")
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	return c.text(ctx, opFetchText, Request{Method: http.MethodGet, URL: url})
}

// FetchWithQuery issues a GET to url + "?" + query and returns the body as text.
//
// The query is used verbatim: it must already be encoded. An empty query
// leaves url untouched.
//
// Example:
//
//	body, err := client.FetchWithQuery(ctx, "https://httpbin.org/get", "key1=value1&key2=value2")
func (c *Client) FetchWithQuery(ctx context.Context, url, query string) (string, error) {
	return c.text(ctx, opFetchWithQuery, Request{Method: http.MethodGet, URL: url, Query: query})
}

// Post issues a POST carrying body as the raw payload and returns the
// response body as text. No Content-Type is set.
//
// Example:
//
//	body, err := client.Post(ctx, "https://httpbin.org/post", []byte("key1=value1&key2=value2"))
func (c *Client) Post(ctx context.Context, url string, body []byte) (string, error) {
	if body == nil {
		body = []byte{}
	}
	return c.text(ctx, opPost, Request{Method: http.MethodPost, URL: url, Body: body})
}

// FetchWithBasicAuth issues a GET to url with HTTP Basic credentials and
// returns the body as text.
//
// By default the body is returned whatever the status, so a rejected login
// is indistinguishable from a successful one unless the caller inspects the
// text. With WithAuthCheck(true) a 401 or 403 answer fails with an auth error.
func (c *Client) FetchWithBasicAuth(ctx context.Context, url, username, password string) (string, error) {
	req := Request{
		Method: http.MethodGet,
		URL:    url,
		Auth:   &BasicAuth{Username: username, Password: password},
	}

	resp, failure := c.execute(ctx, opFetchWithBasicAuth, req, 0)
	if failure != nil {
		return "", failure
	}

	if c.authCheck && isAuthRejection(resp.StatusCode) {
		return "", &Error{
			Type:       ErrorTypeAuth,
			Op:         opFetchWithBasicAuth,
			URL:        resp.url,
			StatusCode: resp.StatusCode,
			Err:        errAuthRejected,
		}
	}

	return resp.textFor(opFetchWithBasicAuth)
}

// text runs req once and decodes the body.
func (c *Client) text(ctx context.Context, op string, req Request) (string, error) {
	resp, failure := c.execute(ctx, op, req, 0)
	if failure != nil {
		return "", failure
	}
	return resp.textFor(op)
}

func isAuthRejection(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
