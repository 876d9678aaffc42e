/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/complic/pkg/report"
	"github.com/fulmenhq/complic/pkg/safeio"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with saved JSON report artifacts",
	}

	validate := &cobra.Command{
		Use:   "validate <report.json>",
		Short: "Validate a report artifact against the report schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportValidate,
	}

	show := &cobra.Command{
		Use:   "show <report.json>",
		Short: "Render a saved report",
		Long:  "Show re-renders a saved report. The exit status reflects its problem count.",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportShow,
	}
	show.Flags().String("format", "text", "Output format (text, markdown, json, template)")
	show.Flags().String("template", "", "Handlebars template file for --format template")

	cmd.AddCommand(validate, show)
	return cmd
}

func readReport(path string) ([]byte, error) {
	clean, err := safeio.CleanUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

func runReportValidate(cmd *cobra.Command, args []string) error {
	data, err := readReport(args[0])
	if err != nil {
		return err
	}
	if err := report.Validate(data); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
	return err
}

func runReportShow(cmd *cobra.Command, args []string) error {
	data, err := readReport(args[0])
	if err != nil {
		return err
	}
	doc, err := report.Parse(data)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	tpl, _ := cmd.Flags().GetString("template")
	rendered, err := renderDocument(doc, format, tpl)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(rendered); err != nil {
		return err
	}
	if n := doc.ProblemCount(); n > 0 {
		return &ProblemsError{Count: n}
	}
	return nil
}
