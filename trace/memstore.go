package trace

import (
	"context"
	"sync"
)

// MemRecorder is a thread-safe in-memory trace recorder, suitable for one
// editor session.
type MemRecorder struct {
	mu      sync.RWMutex
	entries map[string]map[Key]Entry // runID -> key -> entry
	order   map[string][]Key         // runID -> keys in first-record order
	latest  map[string]uint64        // instanceID -> newest RunSeq seen

	listenerMu sync.RWMutex
	listeners  map[int]Listener
	nextID     int
}

// NewMemRecorder creates an empty in-memory recorder.
func NewMemRecorder() *MemRecorder {
	return &MemRecorder{
		entries:   make(map[string]map[Key]Entry),
		order:     make(map[string][]Key),
		latest:    make(map[string]uint64),
		listeners: make(map[int]Listener),
	}
}

// Record upserts the entry, rejecting stale runs.
func (r *MemRecorder) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()

	if newest, ok := r.latest[entry.InstanceID]; ok && entry.RunSeq < newest {
		r.mu.Unlock()
		return nil
	}
	r.latest[entry.InstanceID] = entry.RunSeq

	key := entry.Key()
	byKey, ok := r.entries[entry.RunID]
	if !ok {
		byKey = make(map[Key]Entry)
		r.entries[entry.RunID] = byKey
	}
	if _, exists := byKey[key]; !exists {
		r.order[entry.RunID] = append(r.order[entry.RunID], key)
	}
	byKey[key] = entry
	r.mu.Unlock()

	r.notify(entry)
	return nil
}

// GetTrace returns the run's entries in first-record order.
func (r *MemRecorder) GetTrace(_ context.Context, runID string) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.order[runID]
	byKey := r.entries[runID]
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out, nil
}

// Subscribe registers a listener; the returned function removes it.
func (r *MemRecorder) Subscribe(fn Listener) func() {
	r.listenerMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenerMu.Unlock()

	return func() {
		r.listenerMu.Lock()
		delete(r.listeners, id)
		r.listenerMu.Unlock()
	}
}

func (r *MemRecorder) notify(entry Entry) {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	for _, fn := range r.listeners {
		fn(entry)
	}
}

// Compile-time interface check.
var _ Recorder = (*MemRecorder)(nil)
