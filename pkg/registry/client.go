package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds the single registry fetch.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 32 << 20
)

// Options configures a license registry Client.
type Options struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
}

// Client pulls the raw license list from a registry endpoint.
type Client struct {
	endpoint string
	username string
	password string
	fetcher  HTTPFetcher
}

// NewClient creates a Client with real HTTP for production use
func NewClient(opts Options) *Client {
	return NewClientWithFetcher(opts, NewRealHTTPFetcher(NewHTTPClient(opts.Timeout)))
}

// NewClientWithFetcher creates a Client with injectable HTTP for testing
func NewClientWithFetcher(opts Options, fetcher HTTPFetcher) *Client {
	return &Client{
		endpoint: opts.Endpoint,
		username: opts.Username,
		password: opts.Password,
		fetcher:  fetcher,
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Fetch performs one GET against the endpoint and returns the raw body.
// Basic auth is sent when a username is configured.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no registry endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch license registry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read registry response: %w", err)
	}
	return body, nil
}
