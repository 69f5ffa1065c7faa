package bricks

import (
	"context"
	"fmt"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/schema"
)

// DefaultElementKey is the variable the loop element is bound to in the body
// scope when the author does not choose one.
const DefaultElementKey = "element"

// ForEach executes its body sub-pipeline once per element of a collection,
// sequentially, so later iterations observe side effects of earlier ones.
// Results are aggregated as an array in iteration order; an empty collection
// yields an empty array without invoking the body.
type ForEach struct {
	core.BaseBrick
}

// NewForEach creates the for-each control-flow brick.
func NewForEach() *ForEach {
	return &ForEach{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDForEach,
			Name: "For Each",
			Kind: core.BrickKindTransformer,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"elements": map[string]any{
						"type":        "array",
						"description": "The collection to iterate over.",
					},
					"body": schema.PipelineRef(),
					"elementKey": map[string]any{
						"type":        "string",
						"description": "Variable name the current element is bound to in the body scope.",
					},
				},
				"required": []any{"elements", "body"},
			},
			OutputSchema: map[string]any{
				"type": "array",
			},
		}),
	}
}

// Run iterates the collection, executing the body with the branch counter set
// to the 0-based element index.
func (b *ForEach) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	elements, ok := args["elements"].([]any)
	if !ok {
		return nil, fmt.Errorf("elements resolved to %T, want array", args["elements"])
	}

	body, ok, err := pipeline.SubFromArg(args["body"])
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("body pipeline is missing")
	}

	elementKey := DefaultElementKey
	if key, ok := args["elementKey"].(string); ok && key != "" {
		elementKey = key
	}

	results := make([]any, 0, len(elements))
	for i, element := range elements {
		extra := map[string]any{
			elementKey: element,
			"index":    i,
		}
		result, err := opts.RunPipeline(ctx, "body", body, core.Branch{Key: "body", Counter: i}, extra)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}
