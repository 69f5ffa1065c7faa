package core

import (
	"testing"
)

func TestScopeGet(t *testing.T) {
	s := NewScope().WithInput(map[string]any{"url": "https://example.com"})
	s.Set("count", 3)

	t.Run("input key", func(t *testing.T) {
		v, ok := s.Get(InputKey)
		if !ok {
			t.Fatal("expected input to be visible")
		}
		m, isMap := v.(map[string]any)
		if !isMap || m["url"] != "https://example.com" {
			t.Errorf("unexpected input value: %v", v)
		}
	})

	t.Run("bound variable", func(t *testing.T) {
		v, ok := s.Get("count")
		if !ok || v != 3 {
			t.Errorf("Get(count) = %v, %v; want 3, true", v, ok)
		}
	})

	t.Run("missing variable", func(t *testing.T) {
		if _, ok := s.Get("missing"); ok {
			t.Error("expected missing variable to report ok=false")
		}
	})
}

func TestScopeGetNested(t *testing.T) {
	s := NewScope()
	s.Set("response", map[string]any{
		"data": map[string]any{"id": "abc"},
		"tags": []any{"x", "y"},
	})

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"top level", "response", s.Vars["response"], true},
		{"map path", "response.data.id", "abc", true},
		{"slice index", "response.tags.1", "y", true},
		{"index out of range", "response.tags.5", nil, false},
		{"negative index", "response.tags.-1", nil, false},
		{"missing key", "response.data.missing", nil, false},
		{"descend into scalar", "response.data.id.more", nil, false},
		{"unknown root", "nope.x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.GetNested(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("GetNested(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if tt.wantOK && tt.name != "top level" && got != tt.want {
				t.Errorf("GetNested(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestScopeGetNestedInput(t *testing.T) {
	s := NewScope().WithInput(map[string]any{"user": map[string]any{"name": "ada"}})

	got, ok := s.GetNested("input.user.name")
	if !ok || got != "ada" {
		t.Errorf("GetNested(input.user.name) = %v, %v; want ada, true", got, ok)
	}
}

func TestScopeCloneIsolation(t *testing.T) {
	parent := NewScope().WithInput("starter")
	parent.Set("a", 1)

	child := parent.Clone()
	child.Set("a", 2)
	child.Set("b", 3)

	if v, _ := parent.Get("a"); v != 1 {
		t.Errorf("parent a = %v after child write, want 1", v)
	}
	if _, ok := parent.Get("b"); ok {
		t.Error("child binding leaked into parent")
	}
	if v, _ := child.Get(InputKey); v != "starter" {
		t.Errorf("clone lost input: %v", v)
	}
}

func TestScopeCloneNil(t *testing.T) {
	var s *Scope
	if s.Clone() != nil {
		t.Error("Clone of nil scope should be nil")
	}
}

func TestScopeVisible(t *testing.T) {
	s := NewScope().WithInput("in").WithVar("x", 1)

	visible := s.Visible()
	if visible[InputKey] != "in" || visible["x"] != 1 {
		t.Errorf("unexpected visible namespace: %v", visible)
	}

	// Mutating the returned map must not affect the scope.
	visible["x"] = 99
	if v, _ := s.Get("x"); v != 1 {
		t.Errorf("Visible() returned a live reference, x = %v", v)
	}
}
