/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/ascii"
	"github.com/fulmenhq/complic/pkg/licenses"
	"github.com/fulmenhq/complic/pkg/logger"
)

func newRegistryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the license registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List license rules and approval decisions",
		Args:  cobra.NoArgs,
		RunE:  runRegistryList,
	}
	addRegistryFlags(list)

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Discard the cached registry response and download it again",
		Args:  cobra.NoArgs,
		RunE:  runRegistryRefresh,
	}
	refresh.Flags().String("registry", "", "License registry endpoint (overrides registry.endpoint)")

	approved := &cobra.Command{
		Use:   "approved <license>...",
		Short: "Show whether canonical license names are approved",
		Long: `Approved prints the decision for each canonical name. Names unknown to
the registry and names that are not approved count as problems.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRegistryApproved,
	}
	addRegistryFlags(approved)

	lint := &cobra.Command{
		Use:   "lint",
		Short: "Check that every rule matches its own name and title and no other rule does",
		Args:  cobra.NoArgs,
		RunE:  runRegistryLint,
	}
	addRegistryFlags(lint)

	cmd.AddCommand(list, refresh, approved, lint)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runRegistryList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	regs, err := loadRegistries(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, r := range regs.patterns.Rules() {
		approved := "-"
		if ok, err := regs.approvals.IsApproved(r.Name); err == nil {
			approved = strconv.FormatBool(ok)
		}
		rows = append(rows, []string{r.Name, approved, ascii.Truncate(r.Title, 48)})
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), ascii.Table([]string{"License", "Approved", "Title"}, rows))
	return err
}

func runRegistryRefresh(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	src, err := registrySource(cfg)
	if err != nil {
		return err
	}
	if src == nil {
		return errors.New("no registry endpoint configured (set registry.endpoint or --registry)")
	}
	if err := src.Cache().Invalidate(); err != nil {
		return err
	}
	entries, err := src.Entries(commandContext(cmd))
	if err != nil {
		return err
	}
	logger.Info("Registry refreshed", logger.String("source", src.Name()), logger.String("path", src.Cache().Path()))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d entries cached at %s\n", len(entries), src.Cache().Path())
	return err
}

func runRegistryApproved(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	regs, err := loadRegistries(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	problems := 0
	out := cmd.OutOrStdout()
	for _, name := range args {
		ok, err := regs.approvals.IsApproved(name)
		switch {
		case errors.Is(err, licenses.ErrUnknownLicense):
			problems++
			fmt.Fprintf(out, "%s\tunknown\n", name)
		case err != nil:
			return err
		case ok:
			fmt.Fprintf(out, "%s\tapproved\n", name)
		default:
			problems++
			fmt.Fprintf(out, "%s\tnot approved\n", name)
		}
	}
	if problems > 0 {
		return &ProblemsError{Count: problems}
	}
	return nil
}

func runRegistryLint(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	regs, err := loadRegistries(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	found := licenses.Ambiguities(regs.patterns, licenses.Samples(regs.patterns.Rules()))
	out := cmd.OutOrStdout()
	if len(found) == 0 {
		_, err := fmt.Fprintf(out, "%d rules, no ambiguities\n", regs.patterns.Len())
		return err
	}
	for _, a := range found {
		if a.Unmatched() {
			fmt.Fprintf(out, "%s: %q is not matched by its own rule", a.Rule, a.Sample)
		} else {
			fmt.Fprintf(out, "%s: %q also matches", a.Rule, a.Sample)
		}
		if len(a.Matches) > 0 {
			fmt.Fprintf(out, " (matches: %s)", strings.Join(a.Matches, ", "))
		}
		fmt.Fprintln(out)
	}
	return &ProblemsError{Count: len(found)}
}
