package core

import (
	"context"
	"log/slog"
)

// PipelineRunner executes a nested pipeline carried in a brick's
// configuration. key names the configuration property the pipeline came from
// ("if", "body", ...), branch disambiguates trace entries for repeated
// executions, and extra vars are bound into the child scope before it runs.
//
// The callback is a reentrant call into the execution engine: control-flow and
// grouping bricks use it instead of running sub-pipelines themselves.
type PipelineRunner func(ctx context.Context, key string, ref PipelineRef, branch Branch, extra map[string]any) (any, error)

// BrickOptions is the bundle passed into every brick invocation.
type BrickOptions struct {
	// Scope is a snapshot of the execution context at the point of
	// invocation. Bricks must not rely on later mutations being visible.
	Scope *Scope

	// Root is the current anchor element, or nil when none applies.
	Root Root

	// Logger is scoped to this invocation (run id, brick id, instance id).
	Logger *slog.Logger

	// Headless reports that no render surface is available. The engine
	// refuses renderer bricks before they run; other bricks may consult the
	// flag to adjust behavior.
	Headless bool

	// RunPipeline executes a nested pipeline from this brick's configuration.
	RunPipeline PipelineRunner

	// RunRenderer executes a nested pipeline that ends in a renderer.
	RunRenderer PipelineRunner
}

// ScopedLogger returns opts.Logger, falling back to slog.Default when the
// engine supplied none.
func (o BrickOptions) ScopedLogger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
