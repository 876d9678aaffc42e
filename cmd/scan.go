/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/internal/gitctx"
	"github.com/fulmenhq/complic/pkg/config"
	"github.com/fulmenhq/complic/pkg/ignore"
	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
	"github.com/fulmenhq/complic/pkg/report"
	"github.com/fulmenhq/complic/pkg/safeio"
	"github.com/fulmenhq/complic/pkg/scanner"
)

// newCommandRunner is replaced in tests so no package manager is invoked.
var newCommandRunner = func() scanner.CommandRunner { return scanner.ExecRunner{} }

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a project tree and report license problems",
		Long: `Scan discovers dependencies with the maven, npm, python, cocoapods and go
scanners, normalizes their licenses and reports problems.

Exit status is 0 when no problems are found, 1 on internal errors and
1+N (capped at 125) when N problems are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}
	addRegistryFlags(cmd)
	cmd.Flags().String("format", "text", "Output format (text, markdown, json, template)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String("template", "", "Handlebars template file for --format template")
	cmd.Flags().String("project", "", "Project name (default: from git remote or directory)")
	cmd.Flags().String("policy", "", "YAML compatibility policy file")
	cmd.Flags().String("rego", "", "Rego compatibility policy file")
	cmd.Flags().StringSlice("scanners", nil, "Scanners to run (default: all)")
	cmd.Flags().StringSlice("exclude", nil, "Glob patterns of paths to skip")
	cmd.Flags().Bool("gitignore", false, "Also skip paths ignored by git")
	cmd.Flags().Bool("run-maven", false, "Run license-maven-plugin for poms without a THIRD-PARTY.txt")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		return err
	} else if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", target)
	}

	cfg, err := loadConfig(cmd, target)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	switch format {
	case "text", "markdown", "json", "template":
	default:
		return fmt.Errorf("unsupported format %q (text, markdown, json, template)", format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	regs, err := loadRegistries(ctx, cfg)
	if err != nil {
		return err
	}
	checkers, err := loadCheckers(ctx, cfg)
	if err != nil {
		return err
	}

	deps, err := discover(ctx, target, cfg)
	if err != nil {
		return err
	}

	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		project = gitctx.Describe(target).Name
	}

	rep := report.New(project, regs.approvals, report.WithCheckers(checkers...))
	for _, d := range deps {
		if err := rep.AddDependency(d.Identifier, d.Licenses, regs.patterns); err != nil {
			return err
		}
	}
	doc, err := rep.Render()
	if err != nil {
		return err
	}

	rendered, err := renderDocument(doc, format, cfg.Report.Template)
	if err != nil {
		return err
	}
	if cfg.Report.Output != "" {
		out, err := safeio.CleanUserPath(cfg.Report.Output)
		if err != nil {
			return err
		}
		if err := safeio.WriteFileAtomic(out, rendered, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("Report written", logger.String("path", out))
		if format != "text" {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), doc.Text())
		}
	} else if _, err := cmd.OutOrStdout().Write(rendered); err != nil {
		return err
	}

	if n := doc.ProblemCount(); n > 0 {
		return &ProblemsError{Count: n}
	}
	return nil
}

// discover runs the configured scanners over target.
func discover(ctx context.Context, target string, cfg *config.Config) ([]scanner.Dependency, error) {
	matcher, err := ignore.NewMatcher(target, ignore.Options{
		UseGitignore: cfg.Scan.Gitignore,
		UserFile:     config.UserIgnoreFile(),
	})
	if err != nil {
		return nil, err
	}

	opts := scanner.Options{Runner: newCommandRunner(), RunMaven: cfg.Scan.RunMaven}
	if cfg.Registry.Lookups && !cfg.Registry.Offline {
		opts.NPM = registry.NewNPMClientWithFetcher(newFetcher(cfg.Registry))
		opts.PyPI = registry.NewPyPIClientWithFetcher(newFetcher(cfg.Registry))
	}
	scanners, err := scanner.Build(cfg.Scan.Scanners, opts)
	if err != nil {
		return nil, err
	}

	deps, err := scanner.RunAll(ctx, scanner.NewFinder(matcher, cfg.Scan.Exclude), scanners, cfg.Scan.Concurrency)
	if err != nil {
		return nil, err
	}
	logger.Info("Dependency scan complete", logger.String("root", target), logger.Int("dependencies", len(deps)))
	return deps, nil
}

// renderDocument renders doc in format. A template path selects a custom
// handlebars template for the template format.
func renderDocument(doc *report.Document, format, templatePath string) ([]byte, error) {
	switch format {
	case "json":
		var buf bytes.Buffer
		if err := doc.WriteJSON(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "markdown":
		return []byte(doc.Markdown()), nil
	case "template":
		tpl := ""
		if templatePath != "" {
			clean, err := safeio.CleanUserPath(templatePath)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(clean)
			if err != nil {
				return nil, fmt.Errorf("read template: %w", err)
			}
			tpl = string(data)
		}
		out, err := doc.RenderTemplate(tpl)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	default:
		return []byte(doc.Text()), nil
	}
}
