// Package httpapi is the rate-limited JSON client shared by the archival
// deposit and catalog hosting clients.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ufo-models/ufometa/internal/errors"
)

// Config configures a Client
type Config struct {
	BaseURL string
	Auth    Auth

	// Timeout bounds each request (default 60s). Downloads use Stream,
	// which is bounded by the context only.
	Timeout time.Duration

	// RateLimit in requests per second (default 5) and its burst (default 5)
	RateLimit float64
	RateBurst int

	Headers   map[string]string
	UserAgent string

	// Transport replaces the default transport, mainly for tests
	Transport http.RoundTripper
}

// Client sends requests below BaseURL. Calls are never retried.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient applies defaults to config and builds a client
func NewClient(config Config) *Client {
	if config.Auth == nil {
		config.Auth = NoAuth{}
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 5
	}
	if config.UserAgent == "" {
		config.UserAgent = "ufometa"
	}
	return &Client{
		config:  config,
		http:    &http.Client{Transport: config.Transport},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// Request is one API call. Path is joined to BaseURL unless it is already an
// absolute URL, as bucket and draft links returned by the APIs are.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    io.Reader
}

// Response is a fully read response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON decodes the body into target
func (r *Response) JSON(target interface{}) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPError is returned for every status >= 400
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// StatusOf returns the status code carried by err, or 0
func StatusOf(err error) int {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// URL resolves path against BaseURL
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.config.BaseURL
	}
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	target := c.URL(req.Path)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	c.config.Auth.Apply(httpReq)
	return httpReq, nil
}

// Do sends req and reads the whole response
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	response := &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	if resp.StatusCode >= 400 {
		return response, &HTTPError{
			Method:     req.Method,
			URL:        redact(httpReq.URL),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return response, nil
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

// Put sends body as JSON
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Upload sends r as an octet stream with PUT
func (c *Client) Upload(ctx context.Context, path string, r io.Reader) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPut,
		Path:    path,
		Body:    r,
		Headers: map[string]string{"Content-Type": "application/octet-stream"},
	})
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.Do(ctx, &Request{
		Method:  method,
		Path:    path,
		Body:    reader,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

// Stream copies the body of a GET on path into w without buffering it
func (c *Client) Stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	httpReq, err := c.newRequest(ctx, &Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &HTTPError{
			Method:     http.MethodGet,
			URL:        redact(httpReq.URL),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return io.Copy(w, resp.Body)
}

// redact drops credentials from a URL before it lands in an error
func redact(u *url.URL) string {
	clean := *u
	q := clean.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		clean.RawQuery = q.Encode()
	}
	return clean.String()
}

// NetworkError converts a failed call into the taxonomy's NetworkError
func NetworkError(op string, err error) error {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return &errors.NetworkError{Op: op, StatusCode: httpErr.StatusCode, Message: httpErr.Message, Err: err}
	}
	return &errors.NetworkError{Op: op, Err: err}
}
