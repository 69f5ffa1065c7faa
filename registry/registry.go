// Package registry provides the brick registry: a mapping from stable brick
// ids to implementations, with typed enumeration and lazy kind resolution.
// Each execution context owns its own registry instance; there is no
// cross-context sharing.
package registry

import (
	"context"
	"sync"

	"github.com/brick-labs/brickflow/core"
)

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the singleton registry instance. On first call it
// initializes the registry and registers all built-in bricks.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		registerBuiltins(global)
	})
	return global
}

// TypedBrick is a registered brick annotated with its resolved kind.
type TypedBrick struct {
	Brick core.Brick
	Kind  core.BrickKind
}

// Registry holds registered bricks keyed by id.
type Registry struct {
	mu     sync.RWMutex
	bricks map[string]core.Brick
	order  []string // preserves registration order

	// kinds caches resolved kinds; probing a kind may be expensive.
	kinds map[string]core.BrickKind
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		bricks: make(map[string]core.Brick),
		kinds:  make(map[string]core.BrickKind),
	}
}

// Register adds a brick. If a brick with the same id already exists it is
// overwritten (last write wins, which supports hot reload during
// development) and its cached kind is invalidated.
func (r *Registry) Register(b core.Brick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := b.ID()
	if _, exists := r.bricks[id]; !exists {
		r.order = append(r.order, id)
	}
	r.bricks[id] = b
	delete(r.kinds, id)
}

// Lookup returns the brick registered under id, or a NotFoundError.
func (r *Registry) Lookup(id string) (core.Brick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bricks[id]
	if !ok {
		return nil, &core.NotFoundError{ID: id}
	}
	return b, nil
}

// Get returns the brick registered under id and whether it exists.
func (r *Registry) Get(id string) (core.Brick, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bricks[id]
	return b, ok
}

// Has reports whether a brick is registered under id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bricks[id]
	return ok
}

// List returns all registered ids in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered bricks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bricks)
}

// KindOf resolves the kind of the brick registered under id, probing lazily
// and caching the result. Bricks implementing core.KindProber are probed;
// all others report their static kind.
func (r *Registry) KindOf(ctx context.Context, id string) (core.BrickKind, error) {
	r.mu.RLock()
	b, ok := r.bricks[id]
	if !ok {
		r.mu.RUnlock()
		return "", &core.NotFoundError{ID: id}
	}
	if kind, cached := r.kinds[id]; cached {
		r.mu.RUnlock()
		return kind, nil
	}
	r.mu.RUnlock()

	kind, err := resolveKind(ctx, b)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	// A concurrent Register may have swapped the brick; only cache when the
	// entry is still the one we probed.
	if current, ok := r.bricks[id]; ok && current == b {
		r.kinds[id] = kind
	}
	r.mu.Unlock()

	return kind, nil
}

// AllTyped returns every registered brick annotated with its resolved kind,
// in registration order.
func (r *Registry) AllTyped(ctx context.Context) ([]TypedBrick, error) {
	ids := r.List()
	out := make([]TypedBrick, 0, len(ids))
	for _, id := range ids {
		b, ok := r.Get(id)
		if !ok {
			continue
		}
		kind, err := r.KindOf(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, TypedBrick{Brick: b, Kind: kind})
	}
	return out, nil
}

// InputSchemaOf returns the declared input schema for a registered brick.
// It implements pipeline.SchemaSource.
func (r *Registry) InputSchemaOf(id string) (map[string]any, bool) {
	b, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	return b.InputSchema(), true
}

// KindResolver returns a synchronous kind lookup suitable for pipeline flavor
// validation. Kinds not yet cached are resolved with the given context;
// probe failures report ok=false.
func (r *Registry) KindResolver(ctx context.Context) func(id string) (core.BrickKind, bool) {
	return func(id string) (core.BrickKind, bool) {
		kind, err := r.KindOf(ctx, id)
		if err != nil {
			return "", false
		}
		return kind, true
	}
}

func resolveKind(ctx context.Context, b core.Brick) (core.BrickKind, error) {
	if prober, ok := b.(core.KindProber); ok {
		return prober.ResolveKind(ctx)
	}
	return b.Kind(), nil
}
