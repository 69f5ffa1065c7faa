package pipeline

import (
	"strings"
	"testing"

	"github.com/brick-labs/brickflow/core"
)

// testKinds resolves kinds from a fixed table; unknown ids report ok=false.
func testKinds(table map[string]core.BrickKind) KindResolver {
	return func(id string) (core.BrickKind, bool) {
		kind, ok := table[id]
		return kind, ok
	}
}

var flavorTable = map[string]core.BrickKind{
	"transform/identity": core.BrickKindTransformer,
	"effect/log":         core.BrickKindEffect,
	"render/document":    core.BrickKindRenderer,
	"control/if-else":    core.BrickKindTransformer,
}

func TestValidateFlavorRendererPlacement(t *testing.T) {
	t.Run("renderer mid-pipeline", func(t *testing.T) {
		p := Pipeline{
			{ID: "render/document"},
			{ID: "effect/log"},
		}
		issues := ValidateFlavor(p, FlavorAny, testKinds(flavorTable))
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
		if issues[0].Path != "0" {
			t.Errorf("issue path = %q, want 0", issues[0].Path)
		}
		if !strings.Contains(issues[0].Message, "last invocation") {
			t.Errorf("unexpected message: %q", issues[0].Message)
		}
	})

	t.Run("renderer last is fine", func(t *testing.T) {
		p := Pipeline{
			{ID: "effect/log"},
			{ID: "render/document"},
		}
		if issues := ValidateFlavor(p, FlavorAny, testKinds(flavorTable)); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})

	t.Run("placement checked in nested pipelines", func(t *testing.T) {
		p := Pipeline{
			{ID: "control/if-else", Config: map[string]any{
				"if": Sub(Pipeline{
					{ID: "render/document"},
					{ID: "effect/log"},
				}),
			}},
		}
		issues := ValidateFlavor(p, FlavorAny, testKinds(flavorTable))
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
		if issues[0].Path != "0.config.if.0" {
			t.Errorf("issue path = %q, want 0.config.if.0", issues[0].Path)
		}
	})
}

func TestValidateFlavorNoRenderer(t *testing.T) {
	t.Run("renderer forbidden at top level", func(t *testing.T) {
		p := Pipeline{{ID: "render/document"}}
		issues := ValidateFlavor(p, FlavorNoRenderer, testKinds(flavorTable))
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
		if !strings.Contains(issues[0].Message, "not allowed") {
			t.Errorf("unexpected message: %q", issues[0].Message)
		}
	})

	t.Run("renderer forbidden at depth", func(t *testing.T) {
		p := Pipeline{
			{ID: "control/if-else", Config: map[string]any{
				"if": Sub(Pipeline{{ID: "render/document"}}),
			}},
		}
		issues := ValidateFlavor(p, FlavorNoRenderer, testKinds(flavorTable))
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
	})

	t.Run("renderer-free pipeline passes", func(t *testing.T) {
		p := Pipeline{{ID: "transform/identity"}, {ID: "effect/log"}}
		if issues := ValidateFlavor(p, FlavorNoRenderer, testKinds(flavorTable)); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})
}

func TestValidateFlavorRendererLast(t *testing.T) {
	t.Run("non-renderer tail rejected", func(t *testing.T) {
		p := Pipeline{{ID: "render/document"}, {ID: "effect/log"}}
		issues := ValidateFlavor(p, FlavorRendererLast, testKinds(flavorTable))
		// Mid-pipeline renderer plus missing tail renderer.
		if len(issues) != 2 {
			t.Fatalf("got %d issues, want 2: %v", len(issues), issues)
		}
	})

	t.Run("renderer tail accepted", func(t *testing.T) {
		p := Pipeline{{ID: "effect/log"}, {ID: "render/document"}}
		if issues := ValidateFlavor(p, FlavorRendererLast, testKinds(flavorTable)); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})

	t.Run("empty pipeline passes", func(t *testing.T) {
		if issues := ValidateFlavor(Pipeline{}, FlavorRendererLast, testKinds(flavorTable)); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})
}

func TestValidateFlavorSkipsUnknownIDs(t *testing.T) {
	p := Pipeline{{ID: "not/registered"}, {ID: "also/unknown"}}
	for _, flavor := range []Flavor{FlavorAny, FlavorNoRenderer, FlavorRendererLast} {
		if issues := ValidateFlavor(p, flavor, testKinds(flavorTable)); len(issues) != 0 {
			t.Errorf("flavor %s: unexpected issues for unknown ids: %v", flavor, issues)
		}
	}
}
