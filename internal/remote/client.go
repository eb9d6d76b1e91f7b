// Package remote fetches repository listings, plugin update descriptors and
// plugin packages over HTTP. Every request is bounded by a timeout; failures
// are reported as NetworkError or FormatError so callers can decide whether
// to degrade or propagate.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every remote JSON fetch.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxBodySize caps downloads held in memory.
	DefaultMaxBodySize int64 = 64 << 20

	userAgent = "xdm-updater"
)

// Client performs bounded GET requests.
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize. Non-positive values are ignored.
func WithMaxBodySize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch downloads the body at url fully into memory.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("response body exceeds %d bytes", c.maxBodySize)}
	}

	return body, nil
}

// FetchJSON downloads url and decodes the JSON body into v.
func (c *Client) FetchJSON(ctx context.Context, url string, v any) error {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &FormatError{URL: url, Err: err}
	}
	return nil
}
