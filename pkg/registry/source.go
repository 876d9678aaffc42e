package registry

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Source couples a registry Client with its on-disk cache. Entries are
// loaded at most once per Source.
type Source struct {
	client *Client
	cache  *FileCache

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// NewSource creates a Source.
func NewSource(client *Client, cache *FileCache) *Source {
	return &Source{client: client, cache: cache}
}

// Name identifies the source (and its cache directory).
func (s *Source) Name() string { return s.cache.Name }

// Cache exposes the underlying cache.
func (s *Source) Cache() *FileCache { return s.cache }

// Entries returns the registry entries, reading the cache or fetching.
func (s *Source) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.entries, nil
	}

	data, err := s.cache.Get(ctx, s.refresh)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeEntries(data)
	if err != nil {
		return nil, &RegistryUnavailableError{
			Source: s.cache.Name,
			Err:    fmt.Errorf("cached registry data at %s is unusable: %w", s.cache.Path(), err),
		}
	}
	s.entries = entries
	s.loaded = true
	return entries, nil
}

// refresh fetches and validates before anything is persisted.
func (s *Source) refresh(ctx context.Context) ([]byte, error) {
	body, err := s.client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := DecodeEntries(body); err != nil {
		return nil, err
	}
	return body, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CacheName derives a filesystem-safe cache directory name from an
// endpoint URL, e.g. "artifactory.example_api_licenses".
func CacheName(endpoint string) string {
	u, err := url.Parse(endpoint)
	name := endpoint
	if err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "registry"
	}
	return name
}
