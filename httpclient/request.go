package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Request describes one logical HTTP request.
//
// Example:
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    URL:    "https://api.example.com/search",
//	    Query:  "q=golang&limit=10",
//	    Auth:   &httpclient.BasicAuth{Username: "user", Password: "secret"},
//	})
type Request struct {
	// Method is GET or POST. Empty means GET.
	Method string

	// URL is the request target.
	URL string

	// Query is a raw, already-encoded query string (key=value&key=value).
	// When non-empty it is appended to URL after a single "?" without any
	// re-encoding. A query already present in URL is left as-is.
	Query string

	// Body is sent verbatim. No Content-Type is inferred.
	Body []byte

	// Auth attaches HTTP Basic credentials when set.
	Auth *BasicAuth

	// Header holds extra request headers. They override client defaults.
	Header http.Header
}

// BasicAuth holds HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// String keeps credentials out of logs and formatted errors.
func (BasicAuth) String() string {
	return "BasicAuth{redacted}"
}

// Target returns the URL the request is sent to.
func (r Request) Target() string {
	if r.Query == "" {
		return r.URL
	}
	return r.URL + "?" + r.Query
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// execute performs exactly one round trip for req and reads the whole body.
//
// The response body is closed before execute returns on every path, so the
// connection is released whether the call succeeds, fails in transport,
// or times out while reading.
func (c *Client) execute(ctx context.Context, op string, req Request, attempt int) (*Response, *Error) {
	target := req.Target()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), target, body)
	if err != nil {
		return nil, newTransportError(op, target, attempt, err)
	}

	for k, v := range c.defaultHeaders {
		for _, vv := range v {
			httpReq.Header.Add(k, vv)
		}
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	if req.Auth != nil {
		httpReq.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}

	if c.debug {
		logRequest(c.logger, httpReq, op, attempt)
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		failure := newTransportError(op, target, attempt, err)
		if c.debug {
			logFailure(c.logger, failure, time.Since(start))
		}
		return nil, failure
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		failure := newTransportError(op, target, attempt, err)
		if c.debug {
			logFailure(c.logger, failure, time.Since(start))
		}
		return nil, failure
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Proto:      httpResp.Proto,
		Header:     httpResp.Header,
		url:        redactURL(target),
		body:       data,
		attempt:    attempt,
	}

	if c.debug {
		logResponse(c.logger, resp, op, time.Since(start))
	}

	return resp, nil
}
