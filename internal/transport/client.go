// Package transport wraps HTTP requests against the management API and the
// webhook endpoints: authentication, Accept/Content-Type headers and the
// mapping of server errors to TransportError. Nothing here retries.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
	auth Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response. The caller discriminates
// 200/201/404 itself.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

// OK reports whether the status is 200 or 201.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK || r.StatusCode == http.StatusCreated
}

// NotFound reports whether the status is 404.
func (r *Response) NotFound() bool {
	return r.StatusCode == http.StatusNotFound
}

// Do performs a request with authentication applied. accept sets the Accept
// header; a non-nil body is sent with the same content type.
func (c *Client) Do(ctx context.Context, method, url, accept string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+url, err)
	}

	c.auth.Apply(req)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", accept)
	}

	logging.FromContext(ctx).Debug().
		Str("method", method).
		Str("url", url).
		Msg("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrCanceled, ctx.Err())
		}
		return nil, errors.NewTransportError(url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode == http.StatusInternalServerError {
		return nil, errors.NewTransportError(url, resp.StatusCode, nil)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data, URL: url}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url, accept string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, accept, nil)
}

// Post performs a POST request with the given body.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, contentType, body)
}

// Put performs a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPut, url, contentType, body)
}
