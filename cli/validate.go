package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brick-labs/brickflow/loader"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/registry"
	"github.com/brick-labs/brickflow/runtime"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a mod file without executing",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	mod, err := loader.LoadMod(cmd.Context(), filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		var valErr *loader.ValidationError
		if errors.As(err, &valErr) {
			printIssues(out, valErr.Issues, format)
			return exitError(exitValidation, "validation failed")
		}
		return exitError(exitValidation, "%v", err)
	}

	reducer := runtime.New(registry.Global())
	issues := reducer.DryRun(cmd.Context(), mod.Pipeline, mod.Flavor)

	printIssues(out, issues, format)
	if len(issues) > 0 {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

// printIssues writes issues to the writer in the requested format, followed
// by a summary line (for text format).
func printIssues(w io.Writer, issues []pipeline.Issue, format string) {
	if format == "json" {
		printIssuesJSON(w, issues)
		return
	}
	printIssuesText(w, issues)
	if len(issues) == 0 {
		fmt.Fprintln(w, "Valid!")
	}
}

// printIssuesText writes issues as formatted text lines. Used by both the
// validate and run commands.
func printIssuesText(w io.Writer, issues []pipeline.Issue) {
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(w, "ERROR: %s (at %s)\n", issue.Message, issue.Path)
		} else {
			fmt.Fprintf(w, "ERROR: %s\n", issue.Message)
		}
	}
	if len(issues) > 0 {
		fmt.Fprintf(w, "\n%d %s\n", len(issues), pluralize("error", len(issues)))
	}
}

func printIssuesJSON(w io.Writer, issues []pipeline.Issue) {
	// Output an empty array rather than null when there are no issues.
	if issues == nil {
		issues = []pipeline.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(issues)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
