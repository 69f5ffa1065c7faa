package runtime

import (
	"context"
	"fmt"

	"github.com/brick-labs/brickflow/expr"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/schema"
)

// DryRun statically checks a pipeline without executing any brick: every
// referenced brick id must resolve, every pipeline-typed argument must hold an
// actual sub-pipeline, and the pipeline must satisfy the requested flavor.
// The returned issues use the same path notation as flavor validation.
func (r *Reducer) DryRun(ctx context.Context, p pipeline.Pipeline, flavor pipeline.Flavor) []pipeline.Issue {
	var issues []pipeline.Issue

	err := pipeline.Walk(p, func(inv pipeline.Invocation, pos pipeline.Position) error {
		if !r.registry.Has(inv.ID) {
			issues = append(issues, pipeline.Issue{
				Path:    pos.String(),
				Message: fmt.Sprintf("brick %q not registered", inv.ID),
			})
			return nil
		}

		schemaDoc, ok := r.registry.InputSchemaOf(inv.ID)
		if !ok {
			return nil
		}
		for _, prop := range schema.PipelineProperties(schemaDoc) {
			v, present := inv.Config[prop]
			if !present {
				continue
			}
			if _, isSub := v.(*expr.SubPipeline); !isSub {
				issues = append(issues, pipeline.Issue{
					Path:    pos.Property(prop).String(),
					Message: fmt.Sprintf("property %q must be a pipeline", prop),
				})
			}
		}
		return nil
	})
	if err != nil {
		issues = append(issues, pipeline.Issue{Message: err.Error()})
	}

	issues = append(issues, pipeline.ValidateFlavor(p, flavor, r.registry.KindResolver(ctx))...)
	return issues
}
