package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/brick-labs/brickflow/trace"
)

// NewTraceCmd creates the "trace" subcommand for inspecting recorded runs.
func NewTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the recorded trace of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrace,
	}

	cmd.Flags().String("trace-db", "", "Path to SQLite trace store (required)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	_ = cmd.MarkFlagRequired("trace-db")

	return cmd
}

func runTrace(cmd *cobra.Command, args []string) error {
	runID := args[0]
	dbPath, _ := cmd.Flags().GetString("trace-db")
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	recorder, err := trace.NewSQLiteRecorder(trace.SQLiteRecorderConfig{DSN: dbPath})
	if err != nil {
		return exitError(exitRuntime, "opening trace store: %v", err)
	}
	defer recorder.Close()

	entries, err := recorder.GetTrace(cmd.Context(), runID)
	if err != nil {
		return exitError(exitRuntime, "reading trace: %v", err)
	}
	if len(entries) == 0 {
		return exitError(exitValidation, "no trace entries for run %q", runID)
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BRICK\tINSTANCE\tBRANCH\tDURATION\tSTATUS")
	for _, e := range entries {
		status := "ok"
		switch {
		case e.Error != "":
			status = "error: " + e.Error
		case !e.Completed():
			status = "incomplete"
		}
		duration := "-"
		if e.Completed() {
			duration = e.EndedAt.Sub(e.StartedAt).Round(time.Microsecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.BrickID, e.InstanceID, e.Branch, duration, status)
	}
	return w.Flush()
}
