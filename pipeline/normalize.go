package pipeline

import (
	"github.com/google/uuid"

	"github.com/brick-labs/brickflow/expr"
	"github.com/brick-labs/brickflow/schema"
)

// SchemaSource supplies brick input schemas by id, so normalization can tell
// which configuration properties are declared as nested pipelines. The brick
// registry implements it.
type SchemaSource interface {
	InputSchemaOf(id string) (map[string]any, bool)
}

// Normalize prepares a pipeline tree for execution and tracing: every
// invocation receives a fresh instance id, and every configuration property
// the brick's schema declares as a nested pipeline is guaranteed to hold one:
// absent or malformed values are replaced with an explicit empty pipeline,
// because downstream code assumes the property is always present in pipeline
// form.
//
// Normalization rebuilds the tree; the input is never mutated. It is
// idempotent on structure: re-normalizing changes only instance ids.
func Normalize(p Pipeline, schemas SchemaSource) (Pipeline, error) {
	return Transform(p, func(inv Invocation, _ Position) (Invocation, error) {
		inv.InstanceID = uuid.NewString()

		inputSchema, ok := schemas.InputSchemaOf(inv.ID)
		if !ok {
			return inv, nil
		}

		pipelineProps := schema.PipelineProperties(inputSchema)
		if len(pipelineProps) == 0 {
			return inv, nil
		}

		if inv.Config == nil {
			inv.Config = make(map[string]any, len(pipelineProps))
		}
		for _, name := range pipelineProps {
			if _, isPipeline := inv.Config[name].(*expr.SubPipeline); !isPipeline {
				inv.Config[name] = Sub(Pipeline{})
			}
		}
		return inv, nil
	})
}

// Strip removes instance ids from a pipeline tree before it is persisted back
// to storage. Instance ids are a runtime/tracing concern and must never be
// serialized as user content.
func Strip(p Pipeline) (Pipeline, error) {
	return Transform(p, func(inv Invocation, _ Position) (Invocation, error) {
		inv.InstanceID = ""
		return inv, nil
	})
}
