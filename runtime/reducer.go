package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brick-labs/brickflow/core"
	"github.com/brick-labs/brickflow/expr"
	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/registry"
	"github.com/brick-labs/brickflow/schema"
	"github.com/brick-labs/brickflow/trace"
)

// Reducer executes pipelines. It walks each pipeline strictly in sequence:
// node N+1 never starts resolving until node N's output has been merged into
// the scope. Control-flow bricks reenter the reducer through the callbacks in
// their options bundle; the async Run variant is the only place execution
// detaches from this ordering.
//
// The reducer never retries anything; retries belong to individual bricks or
// to callers.
type Reducer struct {
	registry  *registry.Registry
	validator *schema.Validator
	eventCh   chan Event
}

// New creates a reducer executing against the given registry.
func New(reg *registry.Registry) *Reducer {
	return &Reducer{
		registry:  reg,
		validator: schema.NewValidator(),
		eventCh:   make(chan Event, 100), // buffered channel
	}
}

// Events returns the reducer's event channel. Events are dropped when the
// channel is full; the trace recorder is the lossless record.
func (r *Reducer) Events() <-chan Event {
	return r.eventCh
}

// Run executes a normalized pipeline against a fresh scope built from
// opts.Input. It returns the last invocation's output, or nil for an empty
// pipeline.
func (r *Reducer) Run(ctx context.Context, p pipeline.Pipeline, opts RunOptions) (any, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	seq := newSeqGen()
	emit := func(e Event) {
		e.Seq = seq.Next()
		if opts.EventHandler != nil {
			opts.EventHandler(e)
		}
		select {
		case r.eventCh <- e:
		default:
			// Drop if channel is full
		}
	}

	st := &runState{
		opts:     opts,
		emit:     emit,
		logger:   opts.Logger.With("runId", opts.RunID),
		runStart: opts.Now(),
	}

	emit(NewEvent(EventRunStarted, opts.RunID))

	scope := core.NewScope().WithInput(opts.Input)
	result, err := r.runPipeline(ctx, st, p, scope, nil)

	finish := NewEvent(EventRunFinished, opts.RunID).
		WithElapsed(opts.Now().Sub(st.runStart))
	if err != nil {
		finish = finish.
			WithPayload("status", "failed").
			WithPayload("error", err.Error())
	} else {
		finish = finish.WithPayload("status", "completed")
	}
	emit(finish)

	return result, err
}

// runState carries the per-run plumbing threaded through nested pipelines.
type runState struct {
	opts     RunOptions
	emit     EventEmitter
	logger   *slog.Logger
	runStart time.Time
}

// runPipeline executes one (sub-)pipeline level sequentially. The scope is
// owned by this level: outputs merge into it in order, and sub-pipelines
// receive derived clones, never the scope itself.
func (r *Reducer) runPipeline(
	ctx context.Context,
	st *runState,
	p pipeline.Pipeline,
	scope *core.Scope,
	branches []core.Branch,
) (any, error) {
	var result any

	for i := range p {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline run interrupted: %w", err)
		}

		inv := p[i]
		output, kind, err := r.runBrick(ctx, st, inv, scope, branches)
		if err != nil {
			return nil, err
		}

		if inv.OutputKey != "" {
			scope.Set(inv.OutputKey, output)
		}
		result = output

		// A renderer terminates its pipeline; nothing runs after it.
		if kind == core.BrickKindRenderer {
			return result, nil
		}
	}

	return result, nil
}

// runBrick executes a single invocation through the full node state machine:
// lookup, resolve, validate input, invoke, validate output, trace.
func (r *Reducer) runBrick(
	ctx context.Context,
	st *runState,
	inv pipeline.Invocation,
	scope *core.Scope,
	branches []core.Branch,
) (any, core.BrickKind, error) {
	branchPath := pipeline.BranchPath(branches)
	logger := st.logger.With("brick", inv.ID, "instance", inv.InstanceID)

	brick, err := r.registry.Lookup(inv.ID)
	if err != nil {
		return nil, "", err
	}
	kind, err := r.registry.KindOf(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("resolving kind of %q: %w", inv.ID, err)
	}

	// Refuse renderers before resolution so the error carries the exact
	// unresolved invocation for replay in a context that can render.
	if kind == core.BrickKindRenderer && st.opts.Headless {
		hErr := &core.HeadlessModeError{
			BrickID: inv.ID,
			Config:  inv.Config,
			Scope:   scope.Clone(),
			LoggerContext: map[string]any{
				"runId":    st.opts.RunID,
				"brick":    inv.ID,
				"instance": inv.InstanceID,
				"branch":   branchPath,
			},
		}
		r.recordError(ctx, st, inv, branchPath, time.Time{}, hErr)
		return nil, kind, hErr
	}

	start := st.opts.Now()
	st.emit(NewEvent(EventBrickStarted, st.opts.RunID).
		WithBrick(inv.ID, inv.InstanceID).
		WithBranch(branchPath).
		WithElapsed(start.Sub(st.runStart)))

	fail := func(failErr error) (any, core.BrickKind, error) {
		st.emit(NewEvent(EventBrickFailed, st.opts.RunID).
			WithBrick(inv.ID, inv.InstanceID).
			WithBranch(branchPath).
			WithElapsed(st.opts.Now().Sub(start)).
			WithPayload("error", failErr.Error()))
		return nil, kind, failErr
	}

	args, err := expr.ResolveMap(ctx, inv.Config, scope)
	if err != nil {
		resolveErr := fmt.Errorf("resolving arguments of %q: %w", inv.ID, err)
		r.recordError(ctx, st, inv, branchPath, time.Time{}, resolveErr)
		return fail(resolveErr)
	}

	// Nested pipelines are not plain values; trace and validate them as null.
	tracedArgs := maskPipelineArgs(args)
	r.record(ctx, st, trace.Entry{
		RunID:      st.opts.RunID,
		RunSeq:     st.opts.RunSeq,
		InstanceID: inv.InstanceID,
		BrickID:    inv.ID,
		Branch:     branchPath,
		StartedAt:  start,
		Input:      tracedArgs,
	})

	if issues := r.validate(brick.InputSchema(), tracedArgs); len(issues) > 0 {
		valErr := &core.InputValidationError{
			BrickID: inv.ID,
			Schema:  brick.InputSchema(),
			Value:   tracedArgs,
			Issues:  issues,
		}
		r.recordError(ctx, st, inv, branchPath, start, valErr)
		return fail(valErr)
	}

	// Snapshot the scope here, on the run's own goroutine, before the brick
	// can detach work. A callback cloning the live scope later would race
	// with this pipeline's ongoing output merges.
	snapshot := scope.Clone()
	bopts := core.BrickOptions{
		Scope:       scope.Clone(),
		Root:        st.opts.Root,
		Logger:      logger,
		Headless:    st.opts.Headless,
		RunPipeline: r.pipelineRunner(st, snapshot, branches),
	}
	bopts.RunRenderer = bopts.RunPipeline

	output, err := brick.Run(ctx, args, bopts)
	if err != nil {
		brickErr := &core.BrickError{BrickID: inv.ID, InstanceID: inv.InstanceID, Cause: err}
		r.recordError(ctx, st, inv, branchPath, start, brickErr)
		return fail(brickErr)
	}

	if outputSchema := brick.OutputSchema(); outputSchema != nil {
		if issues := r.validate(outputSchema, output); len(issues) > 0 {
			valErr := &core.OutputValidationError{
				BrickID: inv.ID,
				Schema:  outputSchema,
				Value:   output,
				Issues:  issues,
			}
			r.recordError(ctx, st, inv, branchPath, start, valErr)
			return fail(valErr)
		}
	}

	r.record(ctx, st, trace.Entry{
		RunID:      st.opts.RunID,
		RunSeq:     st.opts.RunSeq,
		InstanceID: inv.InstanceID,
		BrickID:    inv.ID,
		Branch:     branchPath,
		StartedAt:  start,
		EndedAt:    st.opts.Now(),
		Input:      tracedArgs,
		Output:     output,
	})

	st.emit(NewEvent(EventBrickFinished, st.opts.RunID).
		WithBrick(inv.ID, inv.InstanceID).
		WithBranch(branchPath).
		WithElapsed(st.opts.Now().Sub(start)))

	return output, kind, nil
}

// pipelineRunner builds the reentrant callback control-flow bricks use to run
// their nested pipelines. Each call derives a child scope from the snapshot
// taken when the invocation started; nothing the child does writes back, and
// merges the parent performs after the snapshot are never observed. That
// keeps the callback safe to invoke from a detached goroutine.
func (r *Reducer) pipelineRunner(st *runState, snapshot *core.Scope, branches []core.Branch) core.PipelineRunner {
	return func(ctx context.Context, key string, ref core.PipelineRef, branch core.Branch, extra map[string]any) (any, error) {
		sub, err := pipeline.FromRef(ref)
		if err != nil {
			return nil, err
		}

		child := snapshot.Clone()
		for k, v := range extra {
			child.Set(k, v)
		}

		childBranches := make([]core.Branch, len(branches), len(branches)+1)
		copy(childBranches, branches)
		childBranches = append(childBranches, branch)

		st.emit(NewEvent(EventBranchEntered, st.opts.RunID).
			WithBranch(pipeline.BranchPath(childBranches)).
			WithElapsed(st.opts.Now().Sub(st.runStart)).
			WithPayload("key", key).
			WithPayload("counter", branch.Counter))

		return r.runPipeline(ctx, st, sub, child, childBranches)
	}
}

func (r *Reducer) validate(schemaDoc map[string]any, value any) []core.ValidationIssue {
	result, err := r.validator.Validate(schemaDoc, value)
	if err != nil {
		// Validator malfunction (unparseable schema) reads as one issue.
		return []core.ValidationIssue{{Message: err.Error()}}
	}
	if result.Valid {
		return nil
	}
	return result.Issues
}

func (r *Reducer) record(ctx context.Context, st *runState, entry trace.Entry) {
	if st.opts.Recorder == nil {
		return
	}
	if err := st.opts.Recorder.Record(ctx, entry); err != nil {
		st.logger.Warn("failed to record trace entry",
			"instance", entry.InstanceID, "error", err)
	}
}

func (r *Reducer) recordError(
	ctx context.Context,
	st *runState,
	inv pipeline.Invocation,
	branchPath string,
	start time.Time,
	cause error,
) {
	startedAt := start
	if startedAt.IsZero() {
		startedAt = st.opts.Now()
	}
	r.record(ctx, st, trace.Entry{
		RunID:      st.opts.RunID,
		RunSeq:     st.opts.RunSeq,
		InstanceID: inv.InstanceID,
		BrickID:    inv.ID,
		Branch:     branchPath,
		StartedAt:  startedAt,
		EndedAt:    st.opts.Now(),
		Error:      cause.Error(),
	})
}

// maskPipelineArgs replaces nested-pipeline argument values, at any depth,
// with null so traces and schema validation see plain JSON. The internal
// pipeline schema accepts null, which keeps required pipeline properties
// satisfied.
func maskPipelineArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = maskPipelineValue(v)
	}
	return out
}

func maskPipelineValue(v any) any {
	switch t := v.(type) {
	case *expr.SubPipeline:
		return nil
	case map[string]any:
		return maskPipelineArgs(t)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = maskPipelineValue(elem)
		}
		return out
	default:
		return v
	}
}
