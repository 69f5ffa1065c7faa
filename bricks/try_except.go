package bricks

import (
	"context"
	"fmt"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/schema"
)

// TryExcept executes its try sub-pipeline and recovers from failures.
//
// Cancellation is not a business error: a CancelError always propagates.
// When the try branch fails and no except branch is configured, the error is
// swallowed and the result is nil; it is not re-thrown. That asymmetry is
// load-bearing for existing pipelines; do not "fix" it.
type TryExcept struct {
	core.BaseBrick
}

// NewTryExcept creates the try/except control-flow brick.
func NewTryExcept() *TryExcept {
	return &TryExcept{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDTryExcept,
			Name: "Try/Except",
			Kind: core.BrickKindTransformer,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"try":    schema.PipelineRef(),
					"except": schema.PipelineRef(),
				},
				"required": []any{"try"},
			},
		}),
	}
}

// Run executes try; on a non-cancellation failure it runs except with the
// error bound into its scope, or swallows the failure when except is absent.
func (b *TryExcept) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	try, ok, err := pipeline.SubFromArg(args["try"])
	if err != nil {
		return nil, fmt.Errorf("try: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("try pipeline is missing")
	}

	result, runErr := opts.RunPipeline(ctx, "try", try, core.Branch{Key: "try"}, nil)
	if runErr == nil {
		return result, nil
	}
	if core.IsCancel(runErr) {
		return nil, runErr
	}

	except, ok, err := pipeline.SubFromArg(args["except"])
	if err != nil {
		return nil, fmt.Errorf("except: %w", err)
	}
	if !ok {
		opts.ScopedLogger().Debug("try branch failed with no except branch; swallowing",
			"error", runErr)
		return nil, nil
	}

	extra := map[string]any{
		"error": map[string]any{
			"message": runErr.Error(),
		},
	}
	return opts.RunPipeline(ctx, "except", except, core.Branch{Key: "except"}, extra)
}
