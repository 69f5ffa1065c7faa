package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brick-labs/brickflow/core"
)

func stubBrick(id string, kind core.BrickKind) *core.FuncBrick {
	return core.NewFuncBrick(core.BrickMeta{ID: id, Name: id, Kind: kind}, nil)
}

// probedBrick resolves its kind dynamically and counts the probes.
type probedBrick struct {
	core.BaseBrick
	kind   core.BrickKind
	probes int
}

func (b *probedBrick) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	return nil, nil
}

func (b *probedBrick) ResolveKind(ctx context.Context) (core.BrickKind, error) {
	b.probes++
	return b.kind, nil
}

var (
	_ core.Brick      = (*probedBrick)(nil)
	_ core.KindProber = (*probedBrick)(nil)
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	b := stubBrick("transform/identity", core.BrickKindTransformer)
	r.Register(b)

	got, err := r.Lookup("transform/identity")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != core.Brick(b) {
		t.Error("Lookup returned a different brick")
	}

	if !r.Has("transform/identity") {
		t.Error("Has = false for registered id")
	}
	if r.Has("nope") {
		t.Error("Has = true for unknown id")
	}
}

func TestLookupNotFound(t *testing.T) {
	r := New()
	_, err := r.Lookup("missing/brick")
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %T, want *core.NotFoundError", err)
	}
	if nf.ID != "missing/brick" {
		t.Errorf("NotFoundError.ID = %q", nf.ID)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := New()
	r.Register(stubBrick("c", core.BrickKindEffect))
	r.Register(stubBrick("a", core.BrickKindEffect))
	r.Register(stubBrick("b", core.BrickKindEffect))

	want := []string{"c", "a", "b"}
	if diff := cmp.Diff(want, r.List()); diff != "" {
		t.Errorf("List order (-want +got):\n%s", diff)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestRegisterOverwriteInvalidatesKindCache(t *testing.T) {
	ctx := context.Background()
	r := New()

	r.Register(stubBrick("x", core.BrickKindEffect))
	kind, err := r.KindOf(ctx, "x")
	if err != nil || kind != core.BrickKindEffect {
		t.Fatalf("first KindOf = %v, %v", kind, err)
	}

	// Re-registering under the same id must not grow the order list and must
	// drop the cached kind.
	r.Register(stubBrick("x", core.BrickKindRenderer))
	if r.Len() != 1 || len(r.List()) != 1 {
		t.Fatalf("overwrite changed registry size: len=%d list=%v", r.Len(), r.List())
	}
	kind, err = r.KindOf(ctx, "x")
	if err != nil || kind != core.BrickKindRenderer {
		t.Errorf("KindOf after overwrite = %v, %v, want renderer", kind, err)
	}
}

func TestKindOfProbesOnce(t *testing.T) {
	ctx := context.Background()
	r := New()

	b := &probedBrick{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{ID: "dyn", Name: "dyn"}),
		kind:      core.BrickKindRenderer,
	}
	r.Register(b)

	for i := 0; i < 3; i++ {
		kind, err := r.KindOf(ctx, "dyn")
		if err != nil {
			t.Fatalf("KindOf pass %d: %v", i, err)
		}
		if kind != core.BrickKindRenderer {
			t.Fatalf("KindOf pass %d = %v", i, kind)
		}
	}
	if b.probes != 1 {
		t.Errorf("ResolveKind called %d times, want 1", b.probes)
	}
}

func TestKindOfUnknownID(t *testing.T) {
	_, err := New().KindOf(context.Background(), "ghost")
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %T, want *core.NotFoundError", err)
	}
}

func TestAllTyped(t *testing.T) {
	ctx := context.Background()
	r := New()
	r.Register(stubBrick("effect/log", core.BrickKindEffect))
	r.Register(stubBrick("render/document", core.BrickKindRenderer))

	typed, err := r.AllTyped(ctx)
	if err != nil {
		t.Fatalf("AllTyped: %v", err)
	}
	if len(typed) != 2 {
		t.Fatalf("got %d bricks, want 2", len(typed))
	}
	if typed[0].Brick.ID() != "effect/log" || typed[0].Kind != core.BrickKindEffect {
		t.Errorf("typed[0] = %s/%s", typed[0].Brick.ID(), typed[0].Kind)
	}
	if typed[1].Brick.ID() != "render/document" || typed[1].Kind != core.BrickKindRenderer {
		t.Errorf("typed[1] = %s/%s", typed[1].Brick.ID(), typed[1].Kind)
	}
}

func TestInputSchemaOf(t *testing.T) {
	r := New()
	schemaDoc := map[string]any{"type": "object"}
	r.Register(core.NewFuncBrick(core.BrickMeta{ID: "s", InputSchema: schemaDoc}, nil))

	got, ok := r.InputSchemaOf("s")
	if !ok {
		t.Fatal("InputSchemaOf ok = false")
	}
	if diff := cmp.Diff(schemaDoc, got); diff != "" {
		t.Errorf("schema mismatch:\n%s", diff)
	}
	if _, ok := r.InputSchemaOf("absent"); ok {
		t.Error("InputSchemaOf ok = true for unknown id")
	}
}

func TestKindResolver(t *testing.T) {
	r := New()
	r.Register(stubBrick("render/document", core.BrickKindRenderer))

	resolve := r.KindResolver(context.Background())
	kind, ok := resolve("render/document")
	if !ok || kind != core.BrickKindRenderer {
		t.Errorf("resolve = %v, %v", kind, ok)
	}
	if _, ok := resolve("unknown"); ok {
		t.Error("resolver reported ok for unknown id")
	}
}

func TestGlobalHasBuiltins(t *testing.T) {
	g := Global()
	for _, id := range []string{
		"control/if-else",
		"control/for-each",
		"control/try-except",
		"control/run",
		"control/cancel",
		"transform/identity",
		"render/document",
	} {
		if !g.Has(id) {
			t.Errorf("builtin %q not registered", id)
		}
	}
	if g.Len() < 10 {
		t.Errorf("global registry has %d bricks, want at least 10", g.Len())
	}
	if Global() != g {
		t.Error("Global is not a singleton")
	}
}
