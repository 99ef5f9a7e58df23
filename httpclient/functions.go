package httpclient

import "context"

// The package-level functions build a fresh Client for the call and close
// its idle connections before returning, on success and failure alike.
// Use a long-lived Client from New when connection reuse matters.

// FetchText issues a GET to url with a one-off client and returns the body as text.
func FetchText(ctx context.Context, url string, opts ...Option) (string, error) {
	c := New(opts...)
	defer c.Close()
	return c.FetchText(ctx, url)
}

// FetchWithQuery issues a GET to url + "?" + query with a one-off client.
func FetchWithQuery(ctx context.Context, url, query string, opts ...Option) (string, error) {
	c := New(opts...)
	defer c.Close()
	return c.FetchWithQuery(ctx, url, query)
}

// Post issues a POST of the raw body with a one-off client.
func Post(ctx context.Context, url string, body []byte, opts ...Option) (string, error) {
	c := New(opts...)
	defer c.Close()
	return c.Post(ctx, url, body)
}

// FetchWithBasicAuth issues a GET with Basic credentials with a one-off client.
func FetchWithBasicAuth(ctx context.Context, url, username, password string, opts ...Option) (string, error) {
	c := New(opts...)
	defer c.Close()
	return c.FetchWithBasicAuth(ctx, url, username, password)
}

// FetchWithRetries runs a retry sequence with a one-off client.
func FetchWithRetries(ctx context.Context, url string, policy RetryPolicy, opts ...Option) (*Response, error) {
	c := New(opts...)
	defer c.Close()
	return c.FetchWithRetries(ctx, url, policy)
}
