/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/compat"
	"github.com/fulmenhq/complic/pkg/config"
	"github.com/fulmenhq/complic/pkg/licenses"
	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

// newFetcher is replaced in tests to serve registry responses offline.
var newFetcher = func(cfg config.RegistryConfig) registry.HTTPFetcher {
	return registry.NewRealHTTPFetcher(registry.NewHTTPClient(cfg.Timeout))
}

// addRegistryFlags registers the flags shared by commands that need the
// license registry.
func addRegistryFlags(cmd *cobra.Command) {
	cmd.Flags().String("registry", "", "License registry endpoint (overrides registry.endpoint)")
	cmd.Flags().Bool("offline", false, "Use the bundled license inventory only")
}

// registries holds what one run knows about licenses.
type registries struct {
	patterns  *licenses.PatternRegistry
	approvals *licenses.ApprovalRegistry
	source    *registry.Source
}

// registrySource returns the configured remote source, or nil when the
// bundled inventory is to be used.
func registrySource(cfg *config.Config) (*registry.Source, error) {
	if cfg.Registry.Offline || cfg.Registry.Endpoint == "" {
		return nil, nil
	}
	cacheRoot, err := config.GetCacheDir()
	if err != nil {
		return nil, err
	}
	client := registry.NewClientWithFetcher(registry.Options{
		Endpoint: cfg.Registry.Endpoint,
		Username: cfg.Registry.Username,
		Password: cfg.Registry.Password,
		Timeout:  cfg.Registry.Timeout,
	}, newFetcher(cfg.Registry))
	cache := registry.NewFileCache(cacheRoot, registry.CacheName(cfg.Registry.Endpoint), cfg.Registry.TTL)
	return registry.NewSource(client, cache), nil
}

// loadRegistries builds the pattern and approval registries. A remote
// source that cannot be loaded is fatal; a remote source that carries no
// patterns still supplies approvals, with matching done by the bundled
// inventory.
func loadRegistries(ctx context.Context, cfg *config.Config) (*registries, error) {
	bundled, err := licenses.DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("load bundled inventory: %w", err)
	}

	src, err := registrySource(cfg)
	if err != nil {
		return nil, err
	}
	if src == nil {
		patterns, err := licenses.NewPatternRegistry(bundled)
		if err != nil {
			return nil, err
		}
		logger.Debug("Using bundled license inventory", logger.Int("rules", patterns.Len()))
		return &registries{patterns: patterns, approvals: licenses.ApprovalsFromRules(bundled)}, nil
	}

	entries, err := src.Entries(ctx)
	if err != nil {
		return nil, err
	}
	patterns, problems := licenses.FromEntries(entries)
	if len(problems) > 0 {
		logger.Warn("Skipped malformed registry entries", logger.String("source", src.Name()), logger.Int("count", len(problems)))
	}
	if patterns.Len() == 0 {
		logger.Info("Registry has no patterns, matching with the bundled inventory", logger.String("source", src.Name()))
		if patterns, err = licenses.NewPatternRegistry(bundled); err != nil {
			return nil, err
		}
	}
	approvals := licenses.ApprovalsFromEntries(entries)
	logger.Debug("Loaded license registry",
		logger.String("source", src.Name()),
		logger.Int("rules", patterns.Len()),
		logger.Int("approvals", approvals.Len()))
	return &registries{patterns: patterns, approvals: approvals, source: src}, nil
}

// loadCheckers returns the built-in checkers plus any configured policy
// and rego checkers.
func loadCheckers(ctx context.Context, cfg *config.Config) ([]compat.Checker, error) {
	checkers := compat.Defaults()
	if cfg.Policy.Path != "" {
		extra, err := compat.LoadPolicyFile(cfg.Policy.Path)
		if err != nil {
			return nil, err
		}
		checkers = append(checkers, extra...)
	}
	if cfg.Policy.Rego != "" {
		rc, err := compat.LoadRegoFile(ctx, cfg.Policy.Rego)
		if err != nil {
			return nil, err
		}
		checkers = append(checkers, rc)
	}
	if err := compat.Unique(checkers); err != nil {
		return nil, err
	}
	return checkers, nil
}

// loadConfig loads configuration for projectDir with cmd's changed flags
// taking precedence.
func loadConfig(cmd *cobra.Command, projectDir string) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ProjectDir: projectDir, Flags: cmd.Flags()})
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}
