package registry

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticRefresh(body string, calls *int) RefreshFunc {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		return []byte(body), nil
	}
}

func failingRefresh(calls *int) RefreshFunc {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		return nil, errors.New("network down")
	}
}

func TestFileCache_MissFetchesAndPersists(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0

	data, err := c.Get(context.Background(), staticRefresh("[]", &calls))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, 1, calls)

	onDisk, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(onDisk))
	assert.NoFileExists(t, c.LockPath(), "refresh marker must be removed")
}

func TestFileCache_FreshHitSkipsRefresh(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[1]", &calls))
	require.NoError(t, err)

	data, err := c.Get(context.Background(), staticRefresh("[2]", &calls))
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
	assert.Equal(t, 1, calls)
}

func TestFileCache_ExpiredRefreshes(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[1]", &calls))
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	data, err := c.Get(context.Background(), staticRefresh("[2]", &calls))
	require.NoError(t, err)
	assert.Equal(t, "[2]", string(data))
	assert.Equal(t, 2, calls)
}

func TestFileCache_StaleUsedWhenRefreshFails(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[1]", &calls))
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	data, err := c.Get(context.Background(), failingRefresh(&calls))
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
}

func TestFileCache_UnavailableWithoutCache(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0

	_, err := c.Get(context.Background(), failingRefresh(&calls))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.NoFileExists(t, c.LockPath())
}

func TestFileCache_HeldLockUsesDiskWithoutRefreshing(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[1]", &calls))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(c.LockPath(), []byte("123\n"), 0o600))
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	c.LockTTL = 24 * time.Hour

	data, err := c.Get(context.Background(), staticRefresh("[2]", &calls))
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
	assert.Equal(t, 1, calls, "refresh must not run while another process holds the marker")
	assert.FileExists(t, c.LockPath(), "foreign marker must be left alone")
}

func TestFileCache_HeldLockWithoutCache(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	require.NoError(t, os.MkdirAll(c.Dir, 0o750))
	require.NoError(t, os.WriteFile(c.LockPath(), []byte("123\n"), 0o600))

	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[]", &calls))
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.ErrorIs(t, err, ErrRefreshInProgress)
	assert.Equal(t, 0, calls)
}

func TestFileCache_AbandonedLockIsReclaimed(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	require.NoError(t, os.MkdirAll(c.Dir, 0o750))
	require.NoError(t, os.WriteFile(c.LockPath(), []byte("123\n"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.LockPath(), old, old))

	calls := 0
	data, err := c.Get(context.Background(), staticRefresh("[]", &calls))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, 1, calls)
	assert.NoFileExists(t, c.LockPath())
}

func TestFileCache_Invalidate(t *testing.T) {
	c := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	require.NoError(t, c.Invalidate(), "missing cache is not an error")

	calls := 0
	_, err := c.Get(context.Background(), staticRefresh("[]", &calls))
	require.NoError(t, err)
	require.NoError(t, c.Invalidate())
	assert.NoFileExists(t, c.Path())
}

func TestSource_EntriesLoadedOnce(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://licenses.example/crud", 200, sampleEntries)
	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud"}, mock)
	src := NewSource(client, NewFileCache(t.TempDir(), "artifactory", time.Hour))

	entries, err := src.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = src.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, mock.Requests(), 1)
	assert.Equal(t, "artifactory", src.Name())
}

func TestSource_InvalidBodyNotPersisted(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://licenses.example/crud", 200, `{"oops": true}`)
	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud"}, mock)
	cache := NewFileCache(t.TempDir(), "artifactory", time.Hour)
	src := NewSource(client, cache)

	_, err := src.Entries(context.Background())
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.NoFileExists(t, cache.Path())
}

func TestCacheName(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://artifactory.example/api/licenses", "artifactory.example_api_licenses"},
		{"https://licenses.example:8443/crud/", "licenses.example_8443_crud"},
		{"not a url", "not_a_url"},
		{"", "registry"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CacheName(tt.endpoint), tt.endpoint)
	}
}
