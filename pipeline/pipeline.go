// Package pipeline defines the pipeline tree (ordered brick invocations with
// nested sub-pipelines in their configuration), the generic depth-first
// visitor over it, and the normalize/strip passes the editor and runtime rely
// on.
package pipeline

import (
	"fmt"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/expr"
)

// Invocation is one step of a pipeline: a brick id plus its configuration.
type Invocation struct {
	// ID is the brick's registry identifier.
	ID string

	// Label is an optional author-facing name for the step.
	Label string

	// Config holds the argument values: literals, expr expressions, or
	// nested pipelines (as *expr.SubPipeline).
	Config map[string]any

	// OutputKey names the scope variable the invocation's result is bound
	// to, or empty when the result is not bound.
	OutputKey string

	// InstanceID is a tracing-only identifier, unique within one normalized
	// pipeline tree. It is regenerated on every normalization and never
	// serialized as user content.
	InstanceID string
}

// Pipeline is an ordered sequence of brick invocations. It may be empty.
type Pipeline []Invocation

// PipelineRef marks Pipeline as an opaque nested-pipeline handle so it can
// travel through brick configuration and options callbacks.
func (Pipeline) PipelineRef() {}

// FromRef recovers a Pipeline from the opaque handle carried in brick
// arguments.
func FromRef(ref core.PipelineRef) (Pipeline, error) {
	p, ok := ref.(Pipeline)
	if !ok {
		return nil, fmt.Errorf("pipeline reference has unexpected type %T", ref)
	}
	return p, nil
}

// SubFromArg extracts the nested pipeline held by a resolved argument value.
// Returns ok=false when the argument is absent.
func SubFromArg(v any) (Pipeline, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	sub, ok := v.(*expr.SubPipeline)
	if !ok {
		return nil, false, fmt.Errorf("argument holds %T, want a nested pipeline", v)
	}
	p, err := FromRef(sub.Ref)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Sub wraps a pipeline as a configuration value.
func Sub(p Pipeline) *expr.SubPipeline {
	return &expr.SubPipeline{Ref: p}
}

// Ensure interface compliance at compile time.
var _ core.PipelineRef = (Pipeline)(nil)
