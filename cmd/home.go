/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/config"
	"github.com/fulmenhq/complic/pkg/safeio"
)

const starterConfig = `# complic user configuration
registry:
  # endpoint: https://artifactory.example/api/licenses
  # username: ""
  # password: ""
  timeout: 30s
  ttl: 4392h
  offline: false
  lookups: true
scan:
  scanners: []
  exclude: []
  gitignore: false
  run_maven: false
  concurrency: 4
`

func newHomeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the complic home directory and registry caches",
		Long: `Home shows where complic keeps user configuration and registry caches.
COMPLIC_HOME overrides the default of ~/.complic.`,
		Args: cobra.NoArgs,
		RunE: runHome,
	}
	cmd.Flags().Bool("init", false, "Write a starter config.yaml if none exists")
	return cmd
}

func runHome(cmd *cobra.Command, _ []string) error {
	initConfig, _ := cmd.Flags().GetBool("init")
	out := cmd.OutOrStdout()

	home, err := config.EnsureComplicHome()
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")

	if initConfig {
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("%s already exists", cfgPath)
		}
		if err := safeio.WriteFileAtomic(cfgPath, []byte(starterConfig), 0o600); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", cfgPath)
		return nil
	}

	cacheDir, err := config.GetCacheDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Home:   %s\n", home)
	fmt.Fprintf(out, "Config: %s%s\n", cfgPath, missingSuffix(cfgPath))
	fmt.Fprintf(out, "Cache:  %s\n", cacheDir)

	caches, err := registryCaches(cacheDir)
	if err != nil {
		return err
	}
	for _, c := range caches {
		fmt.Fprintf(out, "  %s (updated %s)\n", c.name, c.modTime.UTC().Format(time.RFC3339))
	}
	return nil
}

func missingSuffix(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return " (not present)"
	}
	return ""
}

type cacheInfo struct {
	name    string
	modTime time.Time
}

func registryCaches(dir string) ([]cacheInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []cacheInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		st, err := os.Stat(filepath.Join(dir, e.Name(), "cache"))
		if err != nil {
			continue
		}
		out = append(out, cacheInfo{name: e.Name(), modTime: st.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}
