// Package trace records per-node execution history for pipeline runs, keyed
// by (run id, instance id, branch path). The editor's debugger reads traces
// back per run; live viewers subscribe for synchronous update notifications.
package trace

import (
	"context"
	"time"
)

// Key identifies one executed node of one run. The branch path disambiguates
// multiple executions of the same static node, e.g. loop iterations.
type Key struct {
	RunID      string
	InstanceID string
	Branch     string
}

// Entry is the recorded execution history of one node. It is created when
// the node starts and overwritten in place when it completes or fails.
type Entry struct {
	RunID string

	// RunSeq is an externally supplied monotonic ordering of runs. Recorders
	// drop updates whose RunSeq is older than the newest seen for the same
	// instance id, so a stale run can never overwrite a fresh one.
	RunSeq uint64

	InstanceID string
	BrickID    string

	// Branch is the rendered branch path, e.g. "body:2/if:0".
	Branch string

	StartedAt time.Time

	// EndedAt is zero while the node is still executing.
	EndedAt time.Time

	// Input is the rendered (resolved) configuration the brick ran with.
	Input any

	// Output is the produced value; nil on failure.
	Output any

	// Error is the failure message, empty on success.
	Error string
}

// Key returns the entry's identity tuple.
func (e Entry) Key() Key {
	return Key{RunID: e.RunID, InstanceID: e.InstanceID, Branch: e.Branch}
}

// Completed reports whether the entry has been finalized.
func (e Entry) Completed() bool {
	return !e.EndedAt.IsZero()
}

// Listener is notified synchronously on every accepted record call.
type Listener func(Entry)

// Recorder stores trace entries.
type Recorder interface {
	// Record inserts or overwrites the entry under its key. Stale updates
	// (older RunSeq than the newest recorded for the instance id) are
	// silently dropped.
	Record(ctx context.Context, entry Entry) error

	// GetTrace returns all entries of a run in recording order.
	GetTrace(ctx context.Context, runID string) ([]Entry, error)

	// Subscribe registers a listener for accepted records. The returned
	// function removes the listener.
	Subscribe(fn Listener) (cancel func())
}
