package bricks

import (
	"context"

	"github.com/brick-labs/brickflow/core"
)

// Cancel always fails with a CancelError carrying an optional message. It is
// how a pipeline author explicitly aborts a run; the error unwinds past every
// try/except to the top-level caller and is never retried.
type Cancel struct {
	core.BaseBrick
}

// NewCancel creates the cancel brick.
func NewCancel() *Cancel {
	return &Cancel{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDCancel,
			Name: "Cancel Run",
			Kind: core.BrickKindEffect,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "Optional message shown to the user.",
					},
				},
			},
		}),
	}
}

// Run fails with a CancelError.
func (b *Cancel) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	message, _ := args["message"].(string)
	return nil, &core.CancelError{Message: message}
}
