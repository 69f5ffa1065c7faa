package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brick-labs/brickflow/registry"
)

// NewBricksCmd creates the "bricks" subcommand listing registered bricks.
func NewBricksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bricks",
		Short: "List registered bricks",
		Args:  cobra.NoArgs,
		RunE:  runBricks,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runBricks(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	typed, err := registry.Global().AllTyped(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "listing bricks: %v", err)
	}

	if format == "json" {
		type row struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Kind string `json:"kind"`
			Pure bool   `json:"pure"`
		}
		rows := make([]row, 0, len(typed))
		for _, t := range typed {
			rows = append(rows, row{
				ID:   t.Brick.ID(),
				Name: t.Brick.Name(),
				Kind: string(t.Kind),
				Pure: t.Brick.IsPure(),
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tPURE")
	for _, t := range typed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", t.Brick.ID(), t.Brick.Name(), t.Kind, t.Brick.IsPure())
	}
	return w.Flush()
}
