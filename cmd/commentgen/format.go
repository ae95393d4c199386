package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
)

// formatGeneratedText formats CLIGenerated results as aligned columns.
func formatGeneratedText(w io.Writer, results []CLIGenerated) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tOUTPUT\tDIALECT\tCOMMENTS\tSTATUS")
	for _, r := range results {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.Path, r.OutputPath, r.Dialect, r.Comments, status)
	}
	tw.Flush()
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tFILES\tCOMMENTS\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt, r.Files, r.Comments, r.Skipped, r.Failed)
	}
	tw.Flush()
}

// formatFileHistoryText formats CLIFileHistory as a header plus one row
// per comment.
func formatFileHistoryText(w io.Writer, h CLIFileHistory) {
	fmt.Fprintf(w, "File: %s\n", h.Path)
	fmt.Fprintf(w, "Dialect: %s\n", h.Dialect)
	fmt.Fprintf(w, "Output: %s\n", h.OutputPath)
	fmt.Fprintf(w, "Generated: %s\n", h.LastGenerated)
	if h.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", h.RunID)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tKIND\tNAME\tSCOPE")
	for _, c := range h.Comments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Line+1, c.Kind, c.Name, c.Scope)
	}
	tw.Flush()
}

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIGenerated:
		formatGeneratedText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case []CLIFileHistory:
		for i, h := range v {
			if i > 0 {
				fmt.Fprintln(w)
			}
			formatFileHistoryText(w, h)
		}
	case nil:
	default:
		return errors.Newf("unsupported result type for text format: %T", v)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "\nRun: %s\n", result.RunID)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return errors.Newf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
