package pipeline

import (
	"fmt"

	"github.com/brick-labs/brickflow/core"
)

// Flavor declares which brick kinds are legal in a pipeline, depending on
// where the pipeline is mounted. A sidebar panel pipeline ends in a renderer;
// a menu-item action pipeline must not contain one.
type Flavor string

const (
	// FlavorAny places no kind restriction beyond renderer placement.
	FlavorAny Flavor = "any"

	// FlavorNoRenderer forbids renderer bricks anywhere in the tree.
	FlavorNoRenderer Flavor = "no-renderer"

	// FlavorRendererLast requires the top-level pipeline to end in a
	// renderer brick.
	FlavorRendererLast Flavor = "renderer-last"
)

// KindResolver reports the kind of a registered brick. Unknown ids return
// ok=false and are skipped here; unresolved ids are a dry-run concern.
type KindResolver func(id string) (kind core.BrickKind, ok bool)

// Issue is one flavor-validation diagnostic.
type Issue struct {
	Path    string
	Message string
}

// ValidateFlavor checks renderer placement rules for a pipeline tree.
// In every pipeline at every depth, a renderer may only be the last
// invocation; the flavor adds its mount-specific restrictions on top.
func ValidateFlavor(p Pipeline, flavor Flavor, kinds KindResolver) []Issue {
	var issues []Issue

	issues = append(issues, validateRendererPlacement(p, RootPosition(), kinds)...)

	switch flavor {
	case FlavorNoRenderer:
		err := Walk(p, func(inv Invocation, pos Position) error {
			if kind, ok := kinds(inv.ID); ok && kind == core.BrickKindRenderer {
				issues = append(issues, Issue{
					Path:    pos.String(),
					Message: fmt.Sprintf("renderer %q is not allowed in this pipeline", inv.ID),
				})
			}
			return nil
		})
		if err != nil {
			issues = append(issues, Issue{Message: err.Error()})
		}

	case FlavorRendererLast:
		if len(p) == 0 {
			break
		}
		last := p[len(p)-1]
		if kind, ok := kinds(last.ID); ok && kind != core.BrickKindRenderer {
			issues = append(issues, Issue{
				Path:    RootPosition().Index(len(p) - 1).String(),
				Message: fmt.Sprintf("pipeline must end in a renderer, ends with %q (%s)", last.ID, kind),
			})
		}
	}

	return issues
}

// validateRendererPlacement flags renderers that are not the final invocation
// of their own pipeline, at any depth.
func validateRendererPlacement(p Pipeline, pos Position, kinds KindResolver) []Issue {
	var issues []Issue
	for i, inv := range p {
		ipos := pos.Index(i)
		if kind, ok := kinds(inv.ID); ok && kind == core.BrickKindRenderer && i != len(p)-1 {
			issues = append(issues, Issue{
				Path:    ipos.String(),
				Message: fmt.Sprintf("renderer %q must be the last invocation in its pipeline", inv.ID),
			})
		}
		for _, key := range sortedKeys(inv.Config) {
			if sub, ok, err := SubFromArg(inv.Config[key]); err == nil && ok {
				issues = append(issues, validateRendererPlacement(sub, ipos.Property(key), kinds)...)
			}
		}
	}
	return issues
}
