package httpclient

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// Response is a fully-read HTTP response.
//
// The body is read and the connection released before the Response is
// returned, so there is nothing to close.
//
// Example:
//
//	resp, err := client.FetchWithRetries(ctx, url, httpclient.DefaultRetryPolicy())
//	if err != nil {
//	    return err
//	}
//	if resp.IsSuccess() {
//	    text, err := resp.Text()
//	    ...
//	}
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Status is the status line text, e.g. "200 OK".
	Status string

	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto string

	// Header holds the response headers.
	Header http.Header

	url     string
	body    []byte
	attempt int
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

// Text decodes the body as text using the charset declared in Content-Type.
// It returns a decode *Error when the body is not valid text.
func (r *Response) Text() (string, error) {
	return r.textFor("")
}

func (r *Response) textFor(op string) (string, error) {
	text, err := decodeText(r.body, r.Header.Get("Content-Type"))
	if err != nil {
		return "", &Error{Type: ErrorTypeDecode, Op: op, URL: r.url, Attempt: r.attempt, Err: err}
	}
	return text, nil
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &Error{Type: ErrorTypeDecode, URL: r.url, Attempt: r.attempt, Err: err}
	}
	return nil
}

// IsSuccess returns true if the response status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the response status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Attempt returns the 1-based attempt that produced this response inside a
// retry sequence, or 0 for single-shot operations.
func (r *Response) Attempt() int {
	return r.attempt
}
