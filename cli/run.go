package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/loader"
	"github.com/brick-labs/brickflow/registry"
	"github.com/brick-labs/brickflow/runtime"
	"github.com/brick-labs/brickflow/trace"
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a mod file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().StringP("input", "i", "", "Input data as inline JSON string")
	cmd.Flags().StringP("input-file", "f", "", "Input data from a JSON file")
	cmd.Flags().StringP("output", "o", "", "Write output to file (default: stdout)")
	cmd.Flags().String("format", "pretty", "Output format: json | text | pretty")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Execution timeout")
	cmd.Flags().Bool("dry-run", false, "Validate only, do not execute")
	cmd.Flags().Bool("headless", false, "Run without a render surface (renderers fail)")
	cmd.Flags().String("trace-db", "", "Path to SQLite trace store (default: in-memory)")
	cmd.Flags().Bool("events", false, "Print runtime events to stderr as they happen")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	mod, err := loadModForRun(cmd, filePath)
	if err != nil {
		return err
	}

	reducer := runtime.New(registry.Global())

	if isRunDry(cmd) {
		issues := reducer.DryRun(cmd.Context(), mod.Pipeline, mod.Flavor)
		if len(issues) > 0 {
			printIssuesText(cmd.ErrOrStderr(), issues)
			return exitError(exitValidation, "validation failed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Validation successful.")
		return nil
	}

	input, err := buildRunInput(cmd, mod)
	if err != nil {
		return err
	}

	recorder, closeRecorder, err := buildRunRecorder(cmd)
	if err != nil {
		return err
	}
	defer closeRecorder()

	ctx, cancel, timeout := runContext(cmd)
	defer cancel()

	opts := runtime.DefaultRunOptions()
	opts.Input = input
	opts.Headless, _ = cmd.Flags().GetBool("headless")
	opts.Recorder = recorder
	if printEvents, _ := cmd.Flags().GetBool("events"); printEvents {
		opts.EventHandler = runEventPrinter(cmd)
	}

	result, err := reducer.Run(ctx, mod.Pipeline, opts)
	if err != nil {
		return runRuntimeError(ctx, timeout, err)
	}

	return writeOutput(cmd, result)
}

func loadModForRun(cmd *cobra.Command, filePath string) (*loader.Mod, error) {
	mod, err := loader.LoadMod(cmd.Context(), filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		var valErr *loader.ValidationError
		if errors.As(err, &valErr) {
			printIssuesText(cmd.ErrOrStderr(), valErr.Issues)
			return nil, exitError(exitValidation, "validation failed")
		}
		return nil, exitError(exitValidation, "%v", err)
	}
	return mod, nil
}

func isRunDry(cmd *cobra.Command) bool {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return dryRun
}

// buildRunInput resolves the starter payload: the mod's declared input,
// overridden by --input or --input-file when given.
func buildRunInput(cmd *cobra.Command, mod *loader.Mod) (any, error) {
	inputStr, _ := cmd.Flags().GetString("input")
	inputFile, _ := cmd.Flags().GetString("input-file")

	if inputStr != "" && inputFile != "" {
		return nil, exitError(exitInputParse, "cannot specify both --input and --input-file")
	}

	if inputStr == "" && inputFile == "" {
		if mod.Input == nil {
			return nil, nil
		}
		return mod.Input, nil
	}

	var data []byte
	if inputStr != "" {
		data = []byte(inputStr)
	} else {
		var err error
		data, err = os.ReadFile(inputFile) // #nosec G304 -- path from user CLI flag
		if err != nil {
			return nil, exitError(exitFileNotFound, "reading input file: %v", err)
		}
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, exitError(exitInputParse, "parsing input JSON: %v", err)
	}
	return input, nil
}

func buildRunRecorder(cmd *cobra.Command) (trace.Recorder, func(), error) {
	dbPath, _ := cmd.Flags().GetString("trace-db")
	if strings.TrimSpace(dbPath) == "" {
		return trace.NewMemRecorder(), func() {}, nil
	}

	recorder, err := trace.NewSQLiteRecorder(trace.SQLiteRecorderConfig{DSN: dbPath})
	if err != nil {
		return nil, nil, exitError(exitRuntime, "opening trace store: %v", err)
	}
	return recorder, func() { _ = recorder.Close() }, nil
}

func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc, time.Duration) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return ctx, cancel, timeout
}

func runEventPrinter(cmd *cobra.Command) runtime.EventHandler {
	errOut := cmd.ErrOrStderr()
	return func(e runtime.Event) {
		if e.BrickID != "" {
			fmt.Fprintf(errOut, "[%04d] %-15s %s\n", e.Seq, e.Kind, e.BrickID)
			return
		}
		fmt.Fprintf(errOut, "[%04d] %s\n", e.Seq, e.Kind)
	}
}

func runRuntimeError(ctx context.Context, timeout time.Duration, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return exitError(exitTimeout, "execution timed out after %s", timeout)
	}
	if core.IsCancel(err) {
		return exitError(exitRuntime, "run cancelled: %v", err)
	}
	var headless *core.HeadlessModeError
	if errors.As(err, &headless) {
		return exitError(exitRuntime, "renderer %q cannot run headless", headless.BrickID)
	}
	return exitError(exitRuntime, "execution failed: %v", err)
}

// writeOutput formats and writes the pipeline result.
func writeOutput(cmd *cobra.Command, result any) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var output string
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "marshaling output: %v", err)
		}
		output = string(data)
	case "text":
		output = fmt.Sprintf("%v", result)
	case "pretty":
		output = formatPretty(result)
	default:
		return exitError(exitInputParse, "unknown format %q (use json, text, or pretty)", format)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(output+"\n"), 0600); err != nil {
			return exitError(exitRuntime, "writing output file: %v", err)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// formatPretty returns a human-readable rendering of the pipeline result.
func formatPretty(result any) string {
	var sb strings.Builder

	sb.WriteString("=== Output ===\n")
	switch t := result.(type) {
	case nil:
		sb.WriteString("  (empty pipeline)\n")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, t[k]))
		}
	default:
		sb.WriteString(fmt.Sprintf("  %v\n", t))
	}

	return sb.String()
}
