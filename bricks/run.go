package bricks

import (
	"context"
	"fmt"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/schema"
)

// Run groups a sub-pipeline, either awaiting it or detaching it.
//
// With async true the body is started on its own goroutine with a context
// detached from the caller's cancellation, and the brick returns an empty
// object immediately. The detached run still records its own trace entries
// when it eventually completes or fails; only its result and error are
// decoupled from the caller.
type Run struct {
	core.BaseBrick
}

// NewRun creates the run grouping brick.
func NewRun() *Run {
	return &Run{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDRun,
			Name: "Run",
			Kind: core.BrickKindTransformer,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"body": schema.PipelineRef(),
					"async": map[string]any{
						"type":        "boolean",
						"description": "Start the body without awaiting it.",
					},
				},
				"required": []any{"body"},
			},
		}),
	}
}

// Run executes the body, synchronously or fire-and-forget.
func (b *Run) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	body, ok, err := pipeline.SubFromArg(args["body"])
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("body pipeline is missing")
	}

	async, _ := args["async"].(bool)
	if !async {
		return opts.RunPipeline(ctx, "body", body, core.Branch{Key: "body"}, nil)
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		if _, err := opts.RunPipeline(detached, "body", body, core.Branch{Key: "body"}, nil); err != nil {
			opts.ScopedLogger().Error("detached pipeline failed", "error", err)
		}
	}()

	return map[string]any{}, nil
}
