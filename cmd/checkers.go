/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/compat"
)

func newCheckersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkers",
		Short: "List the compatibility checkers a scan applies",
		Args:  cobra.NoArgs,
		RunE:  runCheckers,
	}
	cmd.Flags().String("policy", "", "YAML compatibility policy file")
	cmd.Flags().String("rego", "", "Rego compatibility policy file")
	return cmd
}

func runCheckers(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	checkers, err := loadCheckers(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, c := range checkers {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s\n", c.Name(), c.Description())
		if sc, ok := c.(*compat.SetChecker); ok {
			fmt.Fprintf(out, "  origin:       %s\n", strings.Join(sc.Origin(), ", "))
			fmt.Fprintf(out, "  incompatible: %s\n", strings.Join(sc.Incompatible(), ", "))
		}
	}
	return nil
}
