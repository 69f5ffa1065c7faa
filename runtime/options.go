package runtime

import (
	"log/slog"
	"time"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/trace"
)

// RunOptions controls execution behavior for one pipeline run.
type RunOptions struct {
	// RunID identifies the run. Generated when empty.
	RunID string

	// RunSeq is a monotonic ordering of runs supplied by the caller, used by
	// the trace recorder to reject stale updates. Callers re-running the
	// same content must increase it per run.
	RunSeq uint64

	// Input is the starter payload bound under core.InputKey.
	Input any

	// Root is the anchor element for root-aware bricks, or nil.
	Root core.Root

	// Headless reports that no render surface exists: renderer bricks fail
	// with HeadlessModeError instead of running.
	Headless bool

	// Logger receives engine and brick logging. Defaults to slog.Default().
	Logger *slog.Logger

	// Recorder receives per-node trace entries. Nil disables tracing.
	Recorder trace.Recorder

	// EventHandler receives events during execution.
	EventHandler EventHandler

	// Now provides the current time (for testing). If nil, uses time.Now.
	Now func() time.Time
}

// DefaultRunOptions returns sensible default options.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Now: time.Now,
	}
}
