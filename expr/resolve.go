package expr

import (
	"context"
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/brick-labs/brickflow/core"
)

// Resolve evaluates a configuration value against a scope.
//
// Literals pass through unchanged. Templates render against the visible
// variable namespace. Variable references look up into the scope, preserving
// the value's type; missing variables resolve to nil rather than failing so
// optional fields stay optional. Maps and slices are walked recursively.
// SubPipeline values are returned as-is for the engine to execute.
func Resolve(ctx context.Context, value any, scope *core.Scope) (any, error) {
	switch v := value.(type) {
	case *Template:
		return renderTemplate(v, scope)

	case *Var:
		out, _ := scope.GetNested(v.Path)
		return out, nil

	case *SubPipeline:
		return v, nil

	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			resolved, err := Resolve(ctx, elem, scope)
			if err != nil {
				return nil, fmt.Errorf("resolving %q: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := Resolve(ctx, elem, scope)
			if err != nil {
				return nil, fmt.Errorf("resolving element %d: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return value, nil
	}
}

// ResolveMap resolves every value of a configuration map.
func ResolveMap(ctx context.Context, config map[string]any, scope *core.Scope) (map[string]any, error) {
	resolved, err := Resolve(ctx, config, scope)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return map[string]any{}, nil
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configuration resolved to %T, want map", resolved)
	}
	return out, nil
}

func renderTemplate(t *Template, scope *core.Scope) (any, error) {
	switch t.Engine {
	case EngineMustache:
		rendered, err := mustache.Render(t.Source, scope.Visible())
		if err != nil {
			return nil, fmt.Errorf("rendering mustache template: %w", err)
		}
		return rendered, nil
	default:
		return nil, fmt.Errorf("unknown template engine %q", t.Engine)
	}
}

// IsTruthy reports whether a resolved value counts as true in a condition:
// nil, false, zero numbers, empty strings, and empty collections are false.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
