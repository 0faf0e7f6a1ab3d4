package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/shroud/internal/obfuscator"
)

// How many individual changes a dry run prints before eliding the rest.
const maxPreviewRows = 40

// degradedErr turns a degraded (but not aborted) run into a non-zero exit.
func degradedErr(report *obfuscator.Report) error {
	if report != nil && report.Degraded {
		return fmt.Errorf("%d file(s) were skipped or failed validation", len(report.SkippedFiles))
	}
	return nil
}

// renderReport prints the run summary table, plus the per-change preview for
// dry runs. Silent mode suppresses everything.
func renderReport(cmd *cobra.Command, report *obfuscator.Report) {
	if cfg != nil && cfg.Silent {
		return
	}
	out := cmd.OutOrStdout()

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Method", report.Method})
	table.Append([]string{"Files processed", strconv.Itoa(len(report.Files))})
	if report.RenamedIdentifiers > 0 {
		table.Append([]string{"Identifiers renamed", strconv.Itoa(report.RenamedIdentifiers)})
		table.Append([]string{"Rename occurrences", strconv.Itoa(report.RenamedOccurrences)})
	}
	if report.EncryptedStrings > 0 {
		table.Append([]string{"Strings encrypted", strconv.Itoa(report.EncryptedStrings)})
	}
	if len(report.SkippedFiles) > 0 {
		table.Append([]string{"Files kept original", strconv.Itoa(len(report.SkippedFiles))})
	}
	if report.MappingPath != "" && !report.DryRun {
		table.Append([]string{"Mapping", report.MappingPath})
	}
	if report.ReversalScript != "" {
		table.Append([]string{"Reversal script", report.ReversalScript})
	}
	if report.BackupPath != "" {
		table.Append([]string{"Backup", report.BackupPath})
	}
	table.Append([]string{"Duration", report.Duration.String()})
	table.Render()

	if report.Degraded {
		fmt.Fprintln(out, "Warning: some files failed output validation and were left unchanged.")
	}
	for _, v := range report.Violations {
		fmt.Fprintf(out, "Safety violation: %s\n", v)
	}

	if report.DryRun {
		fmt.Fprintf(out, "\nDry run: no files were modified. %d planned changes:\n", len(report.Changes))
		for i, ch := range report.Changes {
			if i == maxPreviewRows {
				fmt.Fprintf(out, "  ... and %d more\n", len(report.Changes)-maxPreviewRows)
				break
			}
			fmt.Fprintf(out, "  [%s] %s -> %s\n", ch.Kind, ch.Original, ch.Replacement)
		}
	}
}
