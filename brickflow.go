// Package brickflow provides a Go-native runtime for executing brick
// pipelines: declarative sequences of typed, schema-validated operations with
// nested control flow, tracing, and renderer support.
//
// This file provides re-exports for the most commonly used types and
// constructors from the core, pipeline, registry, and runtime subpackages.
// For new code, consider importing subpackages directly for clearer
// dependencies:
//
//	import "github.com/brick-labs/brickflow/core"
//	import "github.com/brick-labs/brickflow/pipeline"
//	import "github.com/brick-labs/brickflow/registry"
//	import "github.com/brick-labs/brickflow/runtime"
package brickflow

import (
	"context"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/registry"
	"github.com/brick-labs/brickflow/runtime"
)

// Type aliases from core package
type (
	// Brick is the fundamental unit of execution in a pipeline.
	Brick = core.Brick

	// BrickKind classifies what a brick does with its result.
	BrickKind = core.BrickKind

	// BrickOptions is the capability bundle passed to a brick at run time.
	BrickOptions = core.BrickOptions

	// Scope is the variable context a pipeline executes against.
	Scope = core.Scope

	// FuncBrick wraps a function as a Brick.
	FuncBrick = core.FuncBrick
)

// BrickKind constants
const (
	BrickKindEffect      = core.BrickKindEffect
	BrickKindTransformer = core.BrickKindTransformer
	BrickKindReader      = core.BrickKindReader
	BrickKindRenderer    = core.BrickKindRenderer
)

// Type aliases from pipeline package
type (
	// Pipeline is an ordered list of brick invocations.
	Pipeline = pipeline.Pipeline

	// Invocation is one configured brick call inside a pipeline.
	Invocation = pipeline.Invocation
)

// Type aliases from runtime package
type (
	// Reducer executes pipelines.
	Reducer = runtime.Reducer

	// RunOptions controls execution behavior for one pipeline run.
	RunOptions = runtime.RunOptions

	// Event is a structured record of what happened during execution.
	Event = runtime.Event

	// EventHandler is a function type for handling events.
	EventHandler = runtime.EventHandler
)

// Constructors and helpers re-exported from subpackages.
var (
	NewScope          = core.NewScope
	NewReducer        = runtime.New
	DefaultRunOptions = runtime.DefaultRunOptions
	GlobalRegistry    = registry.Global
)

// Run is a convenience function that executes a pipeline against the global
// registry with default options and the given input.
func Run(ctx context.Context, p Pipeline, input any) (any, error) {
	opts := runtime.DefaultRunOptions()
	opts.Input = input
	return runtime.New(registry.Global()).Run(ctx, p, opts)
}

// RunWithOptions executes a pipeline against the global registry with custom
// options.
func RunWithOptions(ctx context.Context, p Pipeline, opts RunOptions) (any, error) {
	return runtime.New(registry.Global()).Run(ctx, p, opts)
}
