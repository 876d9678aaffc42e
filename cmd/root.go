/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/buildinfo"
	"github.com/fulmenhq/complic/pkg/exitcode"
	"github.com/fulmenhq/complic/pkg/logger"
)

// ProblemsError reports a completed run that found approval or
// compatibility problems. Execute maps it to exitcode.Problems.
type ProblemsError struct {
	Count int
}

func (e *ProblemsError) Error() string {
	if e.Count == 1 {
		return "1 problem found"
	}
	return fmt.Sprintf("%d problems found", e.Count)
}

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complic",
		Short: "License compliance scanner",
		Long: `Complic discovers third-party dependencies in a project tree, normalizes
their declared licenses and reports unapproved, unknown and incompatible licenses.

Examples:
   complic scan                       # Scan the current directory
   complic scan ./service --format json --output licenses.json
   complic match "Apache License, Version 2.0"
   complic registry list              # Show the known license patterns
   complic checkers                   # Show the compatibility rules
   complic home                       # Show config and cache locations`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("complic {{.Version}}\n")
	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newMatchCommand())
	cmd.AddCommand(newRegistryCommand())
	cmd.AddCommand(newCheckersCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newHomeCommand())
	cmd.AddCommand(newVersionCommand())
}

// NewCommand returns a fully wired command tree.
func NewCommand() *cobra.Command {
	cmd := newRootCommand()
	registerSubcommands(cmd)
	return cmd
}

// Execute runs the CLI and exits with the mapped exit code.
func Execute() {
	os.Exit(run(NewCommand(), os.Args[1:]))
}

// run executes cmd with args and returns the process exit code.
func run(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitcode.Success
	}
	var problems *ProblemsError
	if errors.As(err, &problems) {
		return exitcode.Problems(problems.Count)
	}
	logger.Error("Command execution failed", logger.Err(err))
	return exitcode.InternalError
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "complic",
	}
	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.InternalError)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}
