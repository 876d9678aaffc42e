package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/safeio"
)

const (
	// DefaultTTL is roughly six months; approval lists change rarely.
	DefaultTTL = 15811200 * time.Second

	// DefaultLockTTL after which an .updating marker is treated as abandoned.
	DefaultLockTTL = 10 * time.Minute

	cacheFileName = "cache"
	lockFileName  = ".updating"
)

// ErrRefreshInProgress is reported when another process holds the marker
// and there is nothing on disk to fall back to.
var ErrRefreshInProgress = errors.New("cache refresh in progress by another process")

// RefreshFunc produces fresh contents for the cache.
type RefreshFunc func(ctx context.Context) ([]byte, error)

// FileCache stores the last successful registry response under
// <root>/<name>/cache. Refreshes are serialized across processes with a
// sibling .updating marker: a process that finds the marker uses whatever
// is already on disk instead of waiting. This is best-effort; callers may
// observe stale data.
type FileCache struct {
	Name    string
	Dir     string
	TTL     time.Duration
	LockTTL time.Duration

	now func() time.Time
}

// NewFileCache creates a cache for the named source under root.
func NewFileCache(root, name string, ttl time.Duration) *FileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileCache{
		Name:    name,
		Dir:     filepath.Join(root, name),
		TTL:     ttl,
		LockTTL: DefaultLockTTL,
		now:     time.Now,
	}
}

// Path returns the cache file location.
func (c *FileCache) Path() string { return filepath.Join(c.Dir, cacheFileName) }

// LockPath returns the refresh marker location.
func (c *FileCache) LockPath() string { return filepath.Join(c.Dir, lockFileName) }

// Get returns cached contents when younger than TTL, otherwise refreshes.
// A failed refresh falls back to stale contents when present; without any
// cached contents the failure is returned as a RegistryUnavailableError.
func (c *FileCache) Get(ctx context.Context, refresh RefreshFunc) ([]byte, error) {
	cached, modTime, readErr := c.read()
	if readErr == nil && c.now().Sub(modTime) <= c.TTL {
		logger.Debug("Using cached registry data", logger.String("source", c.Name), logger.String("path", c.Path()))
		return cached, nil
	}
	if readErr == nil {
		logger.Warn("Registry cache expired, refreshing", logger.String("source", c.Name))
	} else {
		logger.Warn("Registry cache missing, downloading", logger.String("source", c.Name))
	}

	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return c.fallback(cached, readErr, fmt.Errorf("failed to create cache directory: %w", err))
	}

	acquired, err := c.acquire()
	if err != nil {
		return c.fallback(cached, readErr, err)
	}
	if !acquired {
		logger.Warn("Another process is refreshing the registry cache", logger.String("lock", c.LockPath()))
		return c.fallback(cached, readErr, ErrRefreshInProgress)
	}
	defer c.release()

	fresh, err := refresh(ctx)
	if err != nil {
		return c.fallback(cached, readErr, err)
	}

	if err := safeio.WriteFileAtomic(c.Path(), fresh, 0o600); err != nil {
		logger.Warn("Failed to persist registry cache", logger.Err(err))
	} else {
		logger.Info("Registry cache updated", logger.String("source", c.Name), logger.Int("bytes", len(fresh)))
	}
	return fresh, nil
}

// Invalidate removes the cache file so the next Get refreshes.
func (c *FileCache) Invalidate() error {
	if err := os.Remove(c.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove registry cache: %w", err)
	}
	return nil
}

func (c *FileCache) fallback(cached []byte, readErr, cause error) ([]byte, error) {
	if readErr == nil {
		logger.Warn("Using stale registry cache", logger.String("source", c.Name), logger.Err(cause))
		return cached, nil
	}
	return nil, &RegistryUnavailableError{Source: c.Name, Err: cause}
}

func (c *FileCache) read() ([]byte, time.Time, error) {
	st, err := os.Stat(c.Path())
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(c.Path())
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(data) == 0 {
		return nil, time.Time{}, errors.New("registry cache is empty")
	}
	return data, st.ModTime(), nil
}

// acquire creates the marker exclusively. It reports false when another
// process holds a marker younger than LockTTL.
func (c *FileCache) acquire() (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(c.LockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			return true, f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, fmt.Errorf("failed to create refresh marker: %w", err)
		}
		st, statErr := os.Stat(c.LockPath())
		if statErr != nil || c.now().Sub(st.ModTime()) <= c.LockTTL {
			return false, nil
		}
		logger.Warn("Removing abandoned refresh marker", logger.String("lock", c.LockPath()))
		if rmErr := os.Remove(c.LockPath()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return false, nil
		}
	}
	return false, nil
}

func (c *FileCache) release() {
	if err := os.Remove(c.LockPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to remove refresh marker", logger.Err(err))
	}
}
