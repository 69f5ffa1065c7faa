package bricks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brick-labs/brickflow/core"
)

func quietOptions(scope *core.Scope) core.BrickOptions {
	return core.BrickOptions{
		Scope:  scope,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestIdentity(t *testing.T) {
	b := NewIdentity()
	ctx := context.Background()

	for _, value := range []any{"x", 42, map[string]any{"k": "v"}, nil} {
		got, err := b.Run(ctx, map[string]any{"value": value}, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run(%v): %v", value, err)
		}
		if diff := cmp.Diff(value, got); diff != "" {
			t.Errorf("identity changed the value (-want +got):\n%s", diff)
		}
	}
}

func TestTemplate(t *testing.T) {
	b := NewTemplate()
	ctx := context.Background()

	t.Run("explicit data", func(t *testing.T) {
		got, err := b.Run(ctx, map[string]any{
			"template": "hello {{name}}",
			"data":     map[string]any{"name": "ada"},
		}, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got != "hello ada" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to scope variables", func(t *testing.T) {
		scope := core.NewScope().WithVar("name", "grace")
		got, err := b.Run(ctx, map[string]any{"template": "hi {{name}}"}, quietOptions(scope))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got != "hi grace" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("non-string template", func(t *testing.T) {
		if _, err := b.Run(ctx, map[string]any{"template": 1}, quietOptions(nil)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestContextReader(t *testing.T) {
	b := NewContextReader()
	ctx := context.Background()

	scope := core.NewScope().WithInput(map[string]any{"id": 1}).WithVar("name", "ada")
	got, err := b.Run(ctx, map[string]any{}, quietOptions(scope))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[string]any{
		"input": map[string]any{"id": 1},
		"name":  "ada",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visible context mismatch (-want +got):\n%s", diff)
	}

	t.Run("nil scope", func(t *testing.T) {
		got, err := b.Run(ctx, map[string]any{}, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if diff := cmp.Diff(map[string]any{}, got); diff != "" {
			t.Errorf("got %v, want empty object", got)
		}
	})
}

func TestLog(t *testing.T) {
	b := NewLog()
	ctx := context.Background()

	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		args := map[string]any{"message": "m", "data": map[string]any{"k": 1}}
		if level != "" {
			args["level"] = level
		}
		got, err := b.Run(ctx, args, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run(level=%q): %v", level, err)
		}
		if got != nil {
			t.Errorf("log produced output %v", got)
		}
	}
}

func TestDocument(t *testing.T) {
	b := NewDocument()
	ctx := context.Background()

	t.Run("body only", func(t *testing.T) {
		got, err := b.Run(ctx, map[string]any{"body": "# hi"}, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"body": "# hi"}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("with title", func(t *testing.T) {
		got, err := b.Run(ctx, map[string]any{"body": "b", "title": "T"}, quietOptions(nil))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"body": "b", "title": "T"}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("non-string body", func(t *testing.T) {
		if _, err := b.Run(ctx, map[string]any{"body": 7}, quietOptions(nil)); err == nil {
			t.Error("expected error")
		}
	})

	if b.Kind() != core.BrickKindRenderer {
		t.Errorf("document kind = %s, want renderer", b.Kind())
	}
}

func TestCancel(t *testing.T) {
	b := NewCancel()
	ctx := context.Background()

	_, err := b.Run(ctx, map[string]any{"message": "stop here"}, quietOptions(nil))
	var cancelErr *core.CancelError
	if !errors.As(err, &cancelErr) {
		t.Fatalf("got %v, want *core.CancelError", err)
	}
	if cancelErr.Message != "stop here" {
		t.Errorf("Message = %q", cancelErr.Message)
	}

	_, err = b.Run(ctx, map[string]any{}, quietOptions(nil))
	if !core.IsCancel(err) {
		t.Errorf("cancel without message = %v", err)
	}
}

func TestBuiltinsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range Builtins() {
		id := b.ID()
		if id == "" {
			t.Error("builtin with empty id")
		}
		if seen[id] {
			t.Errorf("duplicate builtin id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != 10 {
		t.Errorf("got %d builtins, want 10", len(seen))
	}
}
