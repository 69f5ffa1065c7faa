package bricks

import (
	"context"
	"fmt"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/expr"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/schema"
)

// IfElse executes exactly one of two sub-pipelines based on a condition.
// When the condition is false and no else branch is configured, the result is
// nil and execution continues.
type IfElse struct {
	core.BaseBrick
}

// NewIfElse creates the if/else control-flow brick.
func NewIfElse() *IfElse {
	return &IfElse{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDIfElse,
			Name: "If/Else",
			Kind: core.BrickKindTransformer,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"condition": map[string]any{
						"description": "The branch condition; any falsy value selects the else branch.",
					},
					"if":   schema.PipelineRef(),
					"else": schema.PipelineRef(),
				},
				"required": []any{"if"},
			},
		}),
	}
}

// Run evaluates the condition and executes the selected branch.
func (b *IfElse) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	key := "if"
	if !expr.IsTruthy(args["condition"]) {
		key = "else"
	}

	sub, ok, err := pipeline.SubFromArg(args[key])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if !ok {
		// No else branch configured.
		return nil, nil
	}

	return opts.RunPipeline(ctx, key, sub, core.Branch{Key: key}, nil)
}
