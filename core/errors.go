package core

import (
	"errors"
	"fmt"
)

// ValidationIssue is one structured schema-validation failure, addressable by
// its keyword and instance locations so a UI can point at the offending field.
type ValidationIssue struct {
	KeywordLocation  string `json:"keywordLocation"`
	InstanceLocation string `json:"instanceLocation"`
	Message          string `json:"error"`
}

// InputValidationError reports that a brick's resolved configuration did not
// match its declared input schema. Fatal to the nearest enclosing try/except,
// or to the whole run if none.
type InputValidationError struct {
	BrickID string
	Schema  map[string]any
	Value   any
	Issues  []ValidationIssue
}

// Error implements the error interface.
func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid inputs for brick %q: %d schema violation(s)", e.BrickID, len(e.Issues))
}

// OutputValidationError reports that a brick's produced output did not match
// its declared output schema.
type OutputValidationError struct {
	BrickID string
	Schema  map[string]any
	Value   any
	Issues  []ValidationIssue
}

// Error implements the error interface.
func (e *OutputValidationError) Error() string {
	return fmt.Sprintf("invalid output for brick %q: %d schema violation(s)", e.BrickID, len(e.Issues))
}

// NotFoundError reports that a brick id is not registered. Surfaced to the
// pipeline author as a configuration error; never retried.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("brick %q is not registered", e.ID)
}

// CancelError is an explicit, author-triggered abort of the whole run.
// It is never caught by try/except and always terminates the run.
type CancelError struct {
	Message string
}

// Error implements the error interface.
func (e *CancelError) Error() string {
	if e.Message == "" {
		return "pipeline run canceled"
	}
	return "pipeline run canceled: " + e.Message
}

// IsCancel reports whether err is, or wraps, a CancelError.
func IsCancel(err error) bool {
	var cancel *CancelError
	return errors.As(err, &cancel)
}

// HeadlessModeError signals that a renderer brick was invoked in a context
// with no surface to render into. It carries the raw, unresolved invocation so
// a caller in a different context can replay the identical invocation where it
// can render.
type HeadlessModeError struct {
	BrickID string

	// Config is the brick's raw configuration, exactly as authored
	// (expressions unresolved).
	Config map[string]any

	// Scope is the execution context at the point of invocation.
	Scope *Scope

	// LoggerContext holds the scoped logging attributes (run id, brick id,
	// instance id) for re-dispatch.
	LoggerContext map[string]any
}

// Error implements the error interface.
func (e *HeadlessModeError) Error() string {
	return fmt.Sprintf("renderer %q cannot run headless", e.BrickID)
}

// BrickError wraps a failure raised while executing one invocation, carrying
// the brick and instance identity alongside the underlying cause. The cause
// chain is preserved for telemetry; use errors.Is/As to discriminate.
type BrickError struct {
	BrickID    string
	InstanceID string
	Cause      error
}

// Error implements the error interface.
func (e *BrickError) Error() string {
	return fmt.Sprintf("brick %q failed: %v", e.BrickID, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *BrickError) Unwrap() error {
	return e.Cause
}
