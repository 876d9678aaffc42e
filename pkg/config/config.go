package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for complic
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Report   ReportConfig   `mapstructure:"report"`
}

// RegistryConfig holds the remote license registry settings
type RegistryConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
	// Offline uses the bundled inventory and never touches the network.
	Offline bool `mapstructure:"offline"`
	// Lookups asks npm and PyPI for packages that declare no license.
	Lookups bool `mapstructure:"lookups"`
}

// PolicyConfig points at extra compatibility checkers
type PolicyConfig struct {
	Path string `mapstructure:"path"`
	Rego string `mapstructure:"rego"`
}

// ScanConfig controls dependency discovery
type ScanConfig struct {
	Scanners    []string `mapstructure:"scanners"`
	Exclude     []string `mapstructure:"exclude"`
	Gitignore   bool     `mapstructure:"gitignore"`
	RunMaven    bool     `mapstructure:"run_maven"`
	Concurrency int      `mapstructure:"concurrency"`
}

// ReportConfig controls report output
type ReportConfig struct {
	Template string `mapstructure:"template"`
	Output   string `mapstructure:"output"`
}

// DefaultRegistryTTL is roughly six months; approval lists change rarely.
const DefaultRegistryTTL = 4392 * time.Hour

var defaultConfig = Config{
	Registry: RegistryConfig{
		Timeout: 30 * time.Second,
		TTL:     DefaultRegistryTTL,
		Lookups: true,
	},
	Scan: ScanConfig{
		Concurrency: 4,
	},
}

// ProjectFiles are the project-level config names, first match wins.
var ProjectFiles = []string{".complic.yaml", ".complic.yml"}

// FlagKeys maps config keys to the command flags that override them.
var FlagKeys = map[string]string{
	"registry.endpoint": "registry",
	"registry.offline":  "offline",
	"policy.path":       "policy",
	"policy.rego":       "rego",
	"scan.scanners":     "scanners",
	"scan.exclude":      "exclude",
	"scan.gitignore":    "gitignore",
	"scan.run_maven":    "run-maven",
	"report.template":   "template",
	"report.output":     "output",
}

// LoadOptions selects the sources merged by Load.
type LoadOptions struct {
	// ProjectDir is searched for .complic.yaml. Empty skips project config.
	ProjectDir string
	// Flags, when set, override file and environment values for FlagKeys
	// whose flag was changed on the command line.
	Flags *pflag.FlagSet
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("registry.endpoint", defaultConfig.Registry.Endpoint)
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.timeout", defaultConfig.Registry.Timeout)
	v.SetDefault("registry.ttl", defaultConfig.Registry.TTL)
	v.SetDefault("registry.offline", defaultConfig.Registry.Offline)
	v.SetDefault("registry.lookups", defaultConfig.Registry.Lookups)
	v.SetDefault("policy.path", "")
	v.SetDefault("policy.rego", "")
	v.SetDefault("scan.scanners", []string{})
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.gitignore", false)
	v.SetDefault("scan.run_maven", false)
	v.SetDefault("scan.concurrency", defaultConfig.Scan.Concurrency)
	v.SetDefault("report.template", "")
	v.SetDefault("report.output", "")

	v.SetEnvPrefix("COMPLIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load merges, lowest priority first: defaults, <home>/config.yaml, the
// project file, COMPLIC_* environment variables, then changed flags.
func Load(opts LoadOptions) (*Config, error) {
	v := newViper()

	home, err := GetComplicHome()
	if err != nil {
		return nil, err
	}
	if err := mergeFile(v, filepath.Join(home, "config.yaml")); err != nil {
		return nil, err
	}
	if opts.ProjectDir != "" {
		for _, name := range ProjectFiles {
			path := filepath.Join(opts.ProjectDir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := mergeFile(v, path); err != nil {
				return nil, err
			}
			break
		}
	}

	if opts.Flags != nil {
		for key, flag := range FlagKeys {
			f := opts.Flags.Lookup(flag)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// mergeFile validates and merges one YAML file; a missing file is skipped.
func mergeFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- config locations are fixed
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := ValidateConfig(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// GetComplicHome returns the complic home directory
func GetComplicHome() (string, error) {
	// Check environment variable first
	if home := os.Getenv("COMPLIC_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".complic"), nil
}

// EnsureComplicHome creates the complic home directory if it doesn't exist
func EnsureComplicHome() (string, error) {
	homeDir, err := GetComplicHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create complic home directory: %v", err)
	}
	return homeDir, nil
}

// GetCacheDir returns the registry cache root, one subdirectory per source
func GetCacheDir() (string, error) {
	homeDir, err := EnsureComplicHome()
	if err != nil {
		return "", err
	}
	cacheDir := filepath.Join(homeDir, "cache")
	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %v", err)
	}
	return cacheDir, nil
}

// UserIgnoreFile returns <home>/.complicignore; it may not exist.
func UserIgnoreFile() string {
	home, err := GetComplicHome()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".complicignore")
}
