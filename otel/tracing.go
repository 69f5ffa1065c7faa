// Package otel provides OpenTelemetry integration for brickflow runtime
// events: a handler that translates events into spans, an emitter wrapper
// that stamps trace/span ids onto events, and an OTLP exporter bootstrap.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brick-labs/brickflow/runtime"
)

// TracingHandler translates brickflow runtime events into OpenTelemetry
// spans. It maintains maps of active run and brick spans, creating and ending
// them based on event kind. Brick spans are keyed by runID:instanceID, so
// the same brick invoked on different loop iterations still maps to one span
// per instance.
type TracingHandler struct {
	tracer trace.Tracer

	mu         sync.RWMutex
	runSpans   map[string]trace.Span      // runID -> span
	runCtxs    map[string]context.Context // runID -> context (for child spans)
	brickSpans map[string]trace.Span      // runID:instanceID -> span
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from runtime events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:     tracer,
		runSpans:   make(map[string]trace.Span),
		runCtxs:    make(map[string]context.Context),
		brickSpans: make(map[string]trace.Span),
	}
}

// Handle processes a runtime event and creates or ends spans accordingly.
// It implements runtime.EventHandler semantics.
func (h *TracingHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventRunStarted:
		h.handleRunStarted(e)
	case runtime.EventBrickStarted:
		h.handleBrickStarted(e)
	case runtime.EventBrickFinished:
		h.handleBrickFinished(e)
	case runtime.EventBrickFailed:
		h.handleBrickFailed(e)
	case runtime.EventBranchEntered:
		h.handleBranchEntered(e)
	case runtime.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleRunStarted creates a root span for the run.
func (h *TracingHandler) handleRunStarted(e runtime.Event) {
	modName := ""
	if name, ok := e.Payload["mod"]; ok {
		if s, ok := name.(string); ok {
			modName = s
		}
	}

	spanName := "run:" + e.RunID
	if modName != "" {
		spanName = "run:" + modName
	}

	ctx, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(
			attribute.String("brickflow.run_id", e.RunID),
		),
		trace.WithTimestamp(e.Time),
	)

	if modName != "" {
		span.SetAttributes(attribute.String("brickflow.mod", modName))
	}

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

// handleBrickStarted creates a child span under the run span.
func (h *TracingHandler) handleBrickStarted(e runtime.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()

	if !ok {
		// No parent run span; start from background context.
		parentCtx = context.Background()
	}

	spanName := "brick:" + e.BrickID

	_, span := h.tracer.Start(parentCtx, spanName,
		trace.WithAttributes(
			attribute.String("brickflow.run_id", e.RunID),
			attribute.String("brickflow.brick_id", e.BrickID),
			attribute.String("brickflow.instance_id", e.InstanceID),
			attribute.String("brickflow.branch", e.Branch),
		),
		trace.WithTimestamp(e.Time),
	)

	key := e.RunID + ":" + e.InstanceID
	h.mu.Lock()
	h.brickSpans[key] = span
	h.mu.Unlock()
}

// handleBrickFinished ends the brick span with success status.
func (h *TracingHandler) handleBrickFinished(e runtime.Event) {
	key := e.RunID + ":" + e.InstanceID

	h.mu.Lock()
	span, ok := h.brickSpans[key]
	if ok {
		delete(h.brickSpans, key)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(
			attribute.String("brickflow.duration", e.Elapsed.String()),
		)
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleBrickFailed ends the brick span with error status.
func (h *TracingHandler) handleBrickFailed(e runtime.Event) {
	key := e.RunID + ":" + e.InstanceID

	h.mu.Lock()
	span, ok := h.brickSpans[key]
	if ok {
		delete(h.brickSpans, key)
	}
	h.mu.Unlock()

	if ok {
		errMsg := "unknown error"
		if msg, found := e.Payload["error"]; found {
			if s, ok := msg.(string); ok {
				errMsg = s
			}
		}
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(
			spanError(errMsg),
			trace.WithTimestamp(e.Time),
		)
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleBranchEntered adds a span event on the run span recording descent
// into a sub-pipeline.
func (h *TracingHandler) handleBranchEntered(e runtime.Event) {
	h.mu.RLock()
	span, ok := h.runSpans[e.RunID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("brickflow.branch", e.Branch),
	}
	if key, found := e.Payload["key"]; found {
		if s, ok := key.(string); ok {
			attrs = append(attrs, attribute.String("brickflow.branch_key", s))
		}
	}
	if counter, found := e.Payload["counter"]; found {
		if n, ok := counter.(int); ok {
			attrs = append(attrs, attribute.Int("brickflow.branch_counter", n))
		}
	}

	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
}

// handleRunFinished ends the root run span.
func (h *TracingHandler) handleRunFinished(e runtime.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()

	if ok {
		status := ""
		if s, found := e.Payload["status"]; found {
			if str, ok := s.(string); ok {
				status = str
			}
		}

		span.SetAttributes(
			attribute.String("brickflow.duration", e.Elapsed.String()),
			attribute.String("brickflow.status", status),
		)

		if status == "failed" {
			errMsg := "run failed"
			if msg, found := e.Payload["error"]; found {
				if s, ok := msg.(string); ok {
					errMsg = s
				}
			}
			span.SetStatus(codes.Error, errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End(trace.WithTimestamp(e.Time))
	}
}

// ActiveSpanContext returns the SpanContext for the active brick span
// identified by runID and instanceID. Returns an empty SpanContext if not
// found.
func (h *TracingHandler) ActiveSpanContext(runID, instanceID string) trace.SpanContext {
	key := runID + ":" + instanceID

	h.mu.RLock()
	span, ok := h.brickSpans[key]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveRunSpanContext returns the SpanContext for the active run span
// identified by runID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveRunSpanContext(runID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.runSpans[runID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
