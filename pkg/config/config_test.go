package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("COMPLIC_HOME", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	withHome(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegistryTTL, cfg.Registry.TTL)
	assert.Equal(t, 30*time.Second, cfg.Registry.Timeout)
	assert.True(t, cfg.Registry.Lookups)
	assert.False(t, cfg.Registry.Offline)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Empty(t, cfg.Scan.Scanners)
}

func TestLoadPrecedence(t *testing.T) {
	home := withHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
registry:
  endpoint: https://user.example/api/licenses
  username: alice
  ttl: 24h
scan:
  concurrency: 2
`), 0o600))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".complic.yaml"), []byte(`
registry:
  endpoint: https://project.example/api/licenses
scan:
  scanners: [npm, python]
`), 0o600))

	t.Setenv("COMPLIC_REGISTRY_USERNAME", "bob")

	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	flags.StringSlice("scanners", nil, "")
	flags.Bool("offline", false, "")
	require.NoError(t, flags.Parse([]string{"--offline"}))

	cfg, err := Load(LoadOptions{ProjectDir: project, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "https://project.example/api/licenses", cfg.Registry.Endpoint)
	assert.Equal(t, "bob", cfg.Registry.Username)
	assert.Equal(t, 24*time.Hour, cfg.Registry.TTL)
	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.True(t, cfg.Registry.Offline)
	// unchanged flags leave the project value alone
	assert.Equal(t, []string{"npm", "python"}, cfg.Scan.Scanners)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	withHome(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".complic.yaml"), []byte("registry:\n  endpint: typo\n"), 0o600))

	_, err := Load(LoadOptions{ProjectDir: project})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), ".complic.yaml")
}

func TestComplicHomeDirs(t *testing.T) {
	home := withHome(t)

	got, err := GetComplicHome()
	require.NoError(t, err)
	assert.Equal(t, home, got)

	cache, err := GetCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache"), cache)
	assert.DirExists(t, cache)

	assert.Equal(t, filepath.Join(home, ".complicignore"), UserIgnoreFile())
}
