/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/licenses"
)

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <license text>...",
		Short: "Normalize raw license strings to canonical names",
		Long: `Match prints the canonical license name for each argument, or "unknown".
Each unknown argument counts as one problem in the exit status.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMatch,
	}
	addRegistryFlags(cmd)
	cmd.Flags().Bool("all", false, "List every matching rule, not only the first")
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	regs, err := loadRegistries(ctx, cfg)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")

	out := cmd.OutOrStdout()
	unknown := 0
	for _, raw := range args {
		if all {
			matches := regs.patterns.MatchAll(raw)
			if len(matches) == 0 {
				unknown++
				fmt.Fprintf(out, "%q\tunknown\n", raw)
				continue
			}
			fmt.Fprintf(out, "%q\t%s\n", raw, strings.Join(matches, ", "))
			continue
		}

		name, err := regs.patterns.Match(raw)
		if errors.Is(err, licenses.ErrUnknownLicense) {
			unknown++
			fmt.Fprintf(out, "%q\tunknown\n", raw)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%q\t%s\n", raw, name)
	}
	if unknown > 0 {
		return &ProblemsError{Count: unknown}
	}
	return nil
}
