// Package bricks provides the built-in brick library: the control-flow
// bricks the execution engine's branching semantics are built from, plus a
// small set of leaf bricks covering each kind.
package bricks

import "github.com/brick-labs/brickflow/core"

// Built-in brick ids.
const (
	IDIfElse        = "control/if-else"
	IDForEach       = "control/for-each"
	IDTryExcept     = "control/try-except"
	IDRun           = "control/run"
	IDCancel        = "control/cancel"
	IDIdentity      = "transform/identity"
	IDTemplate      = "transform/template"
	IDContextReader = "reader/context"
	IDLog           = "effect/log"
	IDDocument      = "render/document"
)

// Builtins returns one instance of every built-in brick, in a stable order.
func Builtins() []core.Brick {
	return []core.Brick{
		NewIfElse(),
		NewForEach(),
		NewTryExcept(),
		NewRun(),
		NewCancel(),
		NewIdentity(),
		NewTemplate(),
		NewContextReader(),
		NewLog(),
		NewDocument(),
	}
}
