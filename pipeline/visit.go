package pipeline

import (
	"fmt"
	"sort"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/expr"
)

// VisitFunc is called once for every invocation in a pipeline tree.
type VisitFunc func(inv Invocation, pos Position) error

// Walk traverses a pipeline tree depth-first in pipeline order, visiting
// every invocation exactly once. Configuration properties are descended in
// sorted key order so the traversal is deterministic.
func Walk(p Pipeline, fn VisitFunc) error {
	return walk(p, RootPosition(), fn)
}

func walk(p Pipeline, pos Position, fn VisitFunc) error {
	for i, inv := range p {
		ipos := pos.Index(i)
		if err := fn(inv, ipos); err != nil {
			return err
		}
		for _, key := range sortedKeys(inv.Config) {
			child := ipos.Property(key).WithBranch(core.Branch{Key: key})
			if err := walkValue(inv.Config[key], child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkValue(v any, pos Position, fn VisitFunc) error {
	switch t := v.(type) {
	case *expr.SubPipeline:
		sub, err := FromRef(t.Ref)
		if err != nil {
			return fmt.Errorf("at %s: %w", pos, err)
		}
		return walk(sub, pos, fn)

	case map[string]any:
		for _, key := range sortedKeys(t) {
			if err := walkValue(t[key], pos.Property(key), fn); err != nil {
				return err
			}
		}
		return nil

	case []any:
		for i, elem := range t {
			if err := walkValue(elem, pos.Index(i), fn); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// TransformFunc rewrites one invocation. The invocation's sub-pipelines have
// already been rebuilt when the function is called.
type TransformFunc func(inv Invocation, pos Position) (Invocation, error)

// Transform rebuilds a pipeline tree bottom-up, applying fn to every
// invocation. The input tree is never mutated: every invocation, config map,
// and nested slice on the path to a change is reconstructed.
func Transform(p Pipeline, fn TransformFunc) (Pipeline, error) {
	return transform(p, RootPosition(), fn)
}

func transform(p Pipeline, pos Position, fn TransformFunc) (Pipeline, error) {
	out := make(Pipeline, len(p))
	for i, inv := range p {
		ipos := pos.Index(i)

		rebuilt := inv
		if inv.Config != nil {
			cfg := make(map[string]any, len(inv.Config))
			for _, key := range sortedKeys(inv.Config) {
				child := ipos.Property(key).WithBranch(core.Branch{Key: key})
				value, err := transformValue(inv.Config[key], child, fn)
				if err != nil {
					return nil, err
				}
				cfg[key] = value
			}
			rebuilt.Config = cfg
		}

		result, err := fn(rebuilt, ipos)
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return out, nil
}

func transformValue(v any, pos Position, fn TransformFunc) (any, error) {
	switch t := v.(type) {
	case *expr.SubPipeline:
		sub, err := FromRef(t.Ref)
		if err != nil {
			return nil, fmt.Errorf("at %s: %w", pos, err)
		}
		rebuilt, err := transform(sub, pos, fn)
		if err != nil {
			return nil, err
		}
		return Sub(rebuilt), nil

	case map[string]any:
		out := make(map[string]any, len(t))
		for _, key := range sortedKeys(t) {
			value, err := transformValue(t[key], pos.Property(key), fn)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			value, err := transformValue(elem, pos.Index(i), fn)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil

	default:
		return v, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
