package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// LicenseLookup resolves declared license strings for a published package.
// Scanners fall back to it when local metadata carries no license.
type LicenseLookup interface {
	Licenses(ctx context.Context, name, version string) ([]string, error)
}

// NPMClient looks up declared licenses on the npm registry.
type NPMClient struct {
	baseURL string
	fetcher HTTPFetcher

	mu    sync.RWMutex
	cache map[string][]string
}

// NewNPMClient creates an NPMClient with real HTTP for production use
func NewNPMClient() *NPMClient {
	return NewNPMClientWithFetcher(NewRealHTTPFetcher(NewHTTPClient(DefaultTimeout)))
}

// NewNPMClientWithFetcher creates an NPMClient with injectable HTTP for testing
func NewNPMClientWithFetcher(fetcher HTTPFetcher) *NPMClient {
	return &NPMClient{
		baseURL: "https://registry.npmjs.org",
		fetcher: fetcher,
		cache:   make(map[string][]string),
	}
}

// Licenses returns the license field(s) of name@version.
func (c *NPMClient) Licenses(ctx context.Context, name, version string) ([]string, error) {
	key := name + "@" + version
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// Scoped packages keep their slash escaped
	pkgURL := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(name), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkgURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch npm metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: pkgURL, StatusCode: resp.StatusCode}
	}

	var manifest struct {
		License  json.RawMessage `json:"license"`
		Licenses json.RawMessage `json:"licenses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode npm metadata: %w", err)
	}

	licenses := append(DecodeNPMLicense(manifest.License), DecodeNPMLicense(manifest.Licenses)...)

	c.mu.Lock()
	c.cache[key] = licenses
	c.mu.Unlock()
	return licenses, nil
}

// DecodeNPMLicense accepts the shapes seen in package.json: a string, an
// object with a "type" key, or a list of either.
func DecodeNPMLicense(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" {
		return []string{obj.Type}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, DecodeNPMLicense(item)...)
		}
		return out
	}
	return nil
}
