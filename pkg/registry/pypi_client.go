package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// PyPIClient looks up declared licenses through the PyPI JSON API.
type PyPIClient struct {
	baseURL string
	fetcher HTTPFetcher

	mu    sync.RWMutex
	cache map[string][]string
}

// NewPyPIClient creates a PyPIClient with real HTTP for production use
func NewPyPIClient() *PyPIClient {
	return NewPyPIClientWithFetcher(NewRealHTTPFetcher(NewHTTPClient(DefaultTimeout)))
}

// NewPyPIClientWithFetcher creates a PyPIClient with injectable HTTP for testing
func NewPyPIClientWithFetcher(fetcher HTTPFetcher) *PyPIClient {
	return &PyPIClient{
		baseURL: "https://pypi.org/pypi",
		fetcher: fetcher,
		cache:   make(map[string][]string),
	}
}

// Licenses returns the license of name==version. The free-text "license"
// field wins; otherwise "License ::" trove classifiers are used.
func (c *PyPIClient) Licenses(ctx context.Context, name, version string) ([]string, error) {
	key := name + "@" + version
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	pkgURL := fmt.Sprintf("%s/%s/%s/json", c.baseURL, url.PathEscape(name), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkgURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PyPI metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: pkgURL, StatusCode: resp.StatusCode}
	}

	var pkgData struct {
		Info struct {
			License     string   `json:"license"`
			Classifiers []string `json:"classifiers"`
		} `json:"info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pkgData); err != nil {
		return nil, fmt.Errorf("failed to decode PyPI metadata: %w", err)
	}

	var licenses []string
	if l := strings.TrimSpace(pkgData.Info.License); l != "" && !strings.EqualFold(l, "UNKNOWN") {
		licenses = []string{l}
	} else {
		licenses = ClassifierLicenses(pkgData.Info.Classifiers)
	}

	c.mu.Lock()
	c.cache[key] = licenses
	c.mu.Unlock()
	return licenses, nil
}

// ClassifierLicenses extracts the last segment of "License :: ..." trove
// classifiers, e.g. "License :: OSI Approved :: MIT License" gives
// "MIT License".
func ClassifierLicenses(classifiers []string) []string {
	var out []string
	for _, c := range classifiers {
		parts := strings.Split(c, "::")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) != "License" {
			continue
		}
		last := strings.TrimSpace(parts[len(parts)-1])
		if last == "" || last == "OSI Approved" {
			continue
		}
		out = append(out, last)
	}
	return out
}
