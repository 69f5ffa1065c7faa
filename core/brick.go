// Package core provides the foundational types and interfaces for Brickflow
// pipelines.
//
// This package contains:
//   - Core types: BrickKind, Branch, Scope, Root
//   - Interfaces: Brick, KindProber, PipelineRef
//   - The options bundle passed into every brick invocation
package core

import (
	"context"
)

// BrickKind identifies the type of a brick.
// The set of kinds is intentionally closed: every registered brick is exactly
// one of effect, transformer, reader, or renderer.
type BrickKind string

const (
	// BrickKindEffect acts on the host page or an external system and
	// produces no output value.
	BrickKindEffect BrickKind = "effect"

	// BrickKindTransformer computes an output value from its inputs.
	BrickKindTransformer BrickKind = "transformer"

	// BrickKindReader extracts data from the host context.
	BrickKindReader BrickKind = "reader"

	// BrickKindRenderer produces user-visible output and terminates its
	// pipeline. A renderer must be the last invocation in a pipeline.
	BrickKindRenderer BrickKind = "renderer"
)

// String returns the string representation of the BrickKind.
func (k BrickKind) String() string {
	return string(k)
}

// Brick is the fundamental unit of work in a Brickflow pipeline.
// Bricks are registered once at startup and looked up by id on every
// invocation; implementations must be safe for repeated concurrent use.
type Brick interface {
	// ID returns the stable registry identifier for this brick.
	ID() string

	// Name returns the human-readable name.
	Name() string

	// Kind returns the brick's kind. Bricks whose kind can only be
	// determined at runtime should additionally implement KindProber.
	Kind() BrickKind

	// InputSchema returns the JSON Schema the resolved configuration is
	// validated against before Run is invoked.
	InputSchema() map[string]any

	// OutputSchema returns the JSON Schema the produced output is validated
	// against, or nil when the brick declares no output contract.
	OutputSchema() map[string]any

	// IsPure reports whether the brick is free of side effects and safe to
	// skip during dry runs.
	IsPure() bool

	// IsRootAware reports whether the brick operates on the anchor element
	// supplied in BrickOptions.Root.
	IsRootAware() bool

	// Run executes the brick with resolved arguments.
	Run(ctx context.Context, args map[string]any, opts BrickOptions) (any, error)
}

// KindProber is implemented by bricks whose kind cannot be determined
// statically (for example bricks wrapping remote definitions). The registry
// probes the kind once and caches the result.
type KindProber interface {
	ResolveKind(ctx context.Context) (BrickKind, error)
}

// Root is the host-supplied anchor element a root-aware brick operates on.
// Hosts provide their own implementation; the runtime only threads it through.
type Root interface {
	// Selector returns a stable description of the anchor, such as a CSS path.
	Selector() string
}

// Branch identifies which sub-pipeline an invocation belongs to and which
// iteration produced it: (key, counter) pairs disambiguate multiple runs of
// the same static node, e.g. inside a loop.
type Branch struct {
	Key     string
	Counter int
}

// PipelineRef is an opaque handle to a nested pipeline carried through brick
// configuration. The expression resolver passes it through unresolved; only
// the runtime can execute it, via the callbacks in BrickOptions.
type PipelineRef interface {
	PipelineRef()
}

// BrickMeta carries the static metadata for a BaseBrick.
type BrickMeta struct {
	ID           string
	Name         string
	Kind         BrickKind
	InputSchema  map[string]any
	OutputSchema map[string]any
	Pure         bool
	RootAware    bool
}

// BaseBrick provides common functionality for brick implementations.
// Embed this in concrete brick types to get the metadata accessors for free.
type BaseBrick struct {
	meta BrickMeta
}

// NewBaseBrick creates a BaseBrick from the given metadata.
func NewBaseBrick(meta BrickMeta) BaseBrick {
	return BaseBrick{meta: meta}
}

// ID returns the brick's stable registry identifier.
func (b BaseBrick) ID() string {
	return b.meta.ID
}

// Name returns the brick's human-readable name.
func (b BaseBrick) Name() string {
	return b.meta.Name
}

// Kind returns the brick's kind.
func (b BaseBrick) Kind() BrickKind {
	return b.meta.Kind
}

// InputSchema returns the brick's declared input schema.
func (b BaseBrick) InputSchema() map[string]any {
	return b.meta.InputSchema
}

// OutputSchema returns the brick's declared output schema, or nil.
func (b BaseBrick) OutputSchema() map[string]any {
	return b.meta.OutputSchema
}

// IsPure reports whether the brick is side-effect-free.
func (b BaseBrick) IsPure() bool {
	return b.meta.Pure
}

// IsRootAware reports whether the brick needs an anchor element.
func (b BaseBrick) IsRootAware() bool {
	return b.meta.RootAware
}

// FuncBrick wraps a function as a Brick.
// This is convenient for simple transformations and testing.
type FuncBrick struct {
	BaseBrick
	fn func(ctx context.Context, args map[string]any, opts BrickOptions) (any, error)
}

// NewFuncBrick creates a brick that executes the given function.
func NewFuncBrick(meta BrickMeta, fn func(ctx context.Context, args map[string]any, opts BrickOptions) (any, error)) *FuncBrick {
	return &FuncBrick{
		BaseBrick: NewBaseBrick(meta),
		fn:        fn,
	}
}

// Run executes the wrapped function.
func (b *FuncBrick) Run(ctx context.Context, args map[string]any, opts BrickOptions) (any, error) {
	if b.fn == nil {
		return nil, nil
	}
	return b.fn(ctx, args, opts)
}

// Ensure interface compliance at compile time.
var _ Brick = (*FuncBrick)(nil)
