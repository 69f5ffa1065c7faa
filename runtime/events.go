// Package runtime provides the execution engine for brick pipelines: the
// reducer that walks a normalized pipeline node-by-node, resolving arguments,
// validating them, invoking bricks, and recording traces.
package runtime

import (
	"time"
)

// EventKind identifies the type of event emitted by the runtime.
type EventKind string

const (
	// EventRunStarted is emitted when a pipeline run begins.
	EventRunStarted EventKind = "run.started"

	// EventBrickStarted is emitted when an invocation begins execution.
	EventBrickStarted EventKind = "brick.started"

	// EventBrickFailed is emitted when an invocation fails.
	EventBrickFailed EventKind = "brick.failed"

	// EventBrickFinished is emitted when an invocation completes.
	EventBrickFinished EventKind = "brick.finished"

	// EventBranchEntered is emitted when the engine descends into a
	// sub-pipeline (conditional branch, loop body, try/except arm).
	EventBranchEntered EventKind = "branch.entered"

	// EventRunFinished is emitted when a pipeline run completes.
	EventRunFinished EventKind = "run.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured, streamable record of what happened during execution.
// Events should be kept small; full per-node history lives in the trace
// recorder.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// RunID is the unique identifier for this run.
	RunID string

	// BrickID is the brick that produced this event (empty for run-level
	// events).
	BrickID string

	// InstanceID is the invocation's tracing id (empty for run-level events).
	InstanceID string

	// Branch is the rendered branch path of the invocation.
	Branch string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the run or invocation started.
	Elapsed time.Duration

	// Payload contains event-specific data.
	Payload map[string]any

	// Seq is a monotonic sequence number per run (1-indexed).
	Seq uint64

	// TraceID is the OpenTelemetry trace ID (hex-encoded, empty when OTel
	// inactive).
	TraceID string

	// SpanID is the OpenTelemetry span ID (hex-encoded, empty when OTel
	// inactive).
	SpanID string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, runID string) Event {
	return Event{
		Kind:    kind,
		RunID:   runID,
		Time:    time.Now(),
		Payload: make(map[string]any),
	}
}

// WithBrick sets the invocation identity on the event.
func (e Event) WithBrick(brickID, instanceID string) Event {
	e.BrickID = brickID
	e.InstanceID = instanceID
	return e
}

// WithBranch sets the branch path on the event.
func (e Event) WithBranch(branch string) Event {
	e.Branch = branch
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventEmitter is a function type for emitting events.
type EventEmitter func(Event)

// EventHandler is a function type for handling events.
// Implementations can log, store, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full
		}
	}
}
