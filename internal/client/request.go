package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rawlogin/adminctl/pkg/api"
)

// Request describes one call to the admin API. At most one of JSON and Form
// is sent as the body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
}

// Option customizes a Request built by NewRequest.
type Option func(*Request)

// WithJSON sends v as a JSON body.
func WithJSON(v any) Option {
	return func(r *Request) {
		r.JSON = v
		r.Form = nil
	}
}

// WithForm sends values as an application/x-www-form-urlencoded body.
func WithForm(values url.Values) Option {
	return func(r *Request) {
		r.Form = values
		r.JSON = nil
	}
}

// WithQuery adds a query parameter. Empty values are skipped so optional
// filters are left out of the URL entirely.
func WithQuery(key, value string) Option {
	return func(r *Request) {
		if value == "" {
			return
		}
		if r.Query == nil {
			r.Query = url.Values{}
		}
		r.Query.Add(key, value)
	}
}

// NewRequest builds a Request from a method, path and options.
func NewRequest(method, path string, opts ...Option) Request {
	r := Request{Method: method, Path: path}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Response is a received answer with its envelope decoded. Data is left raw
// so typed callers can decode it into the shape they expect.
type Response struct {
	StatusCode int
	Header     http.Header
	Cookies    []*http.Cookie
	Envelope   api.Result[json.RawMessage]
}

// Cookie returns the named cookie set by the response, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, r Request) (*http.Request, error) {
	target := strings.TrimRight(c.baseURL, "/") + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.JSON != nil:
		payload, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
