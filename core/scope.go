package core

import (
	"strconv"
	"strings"
)

// InputKey is the reserved variable name under which the starter input is
// visible to expressions and bricks.
const InputKey = "input"

// Scope is the accumulating execution context threaded through one pipeline
// run. Output-binding keys map to previously produced values; the starter
// input is visible under InputKey.
//
// A Scope is exclusively owned by one pipeline run. Sub-pipeline invocations
// (branches, loop bodies) receive a clone derived from the parent's scope and
// never write back into it.
type Scope struct {
	// Input is the initial payload supplied by the starter trigger.
	Input any

	// Vars maps output-binding keys to the values earlier invocations produced.
	Vars map[string]any
}

// NewScope creates an empty scope with an initialized variable map.
func NewScope() *Scope {
	return &Scope{
		Vars: make(map[string]any),
	}
}

// Clone creates a copy of the scope suitable for sub-pipeline execution.
// The variable map is shallow-copied so child writes never reach the parent.
// Values themselves may still reference shared memory.
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}

	out := &Scope{
		Input: s.Input,
	}

	if s.Vars != nil {
		out.Vars = make(map[string]any, len(s.Vars))
		for k, v := range s.Vars {
			out.Vars[k] = v
		}
	}

	return out
}

// Set binds a value under an output key.
// Initializes the map if nil.
func (s *Scope) Set(name string, value any) {
	if s.Vars == nil {
		s.Vars = make(map[string]any)
	}
	s.Vars[name] = value
}

// Get retrieves a variable by name.
// Returns the value and true if found, or nil and false if not.
func (s *Scope) Get(name string) (any, bool) {
	if name == InputKey {
		return s.Input, true
	}
	if s.Vars == nil {
		return nil, false
	}
	v, ok := s.Vars[name]
	return v, ok
}

// GetNested retrieves a nested variable using dot notation
// (e.g. "response.data.id"). Numeric path segments index into slices.
// Returns the value and true if found, or nil and false if not.
func (s *Scope) GetNested(path string) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, false
	}

	current, ok := s.Get(parts[0])
	if !ok {
		return nil, false
	}

	for _, part := range parts[1:] {
		switch v := current.(type) {
		case map[string]any:
			current, ok = v[part]
			if !ok {
				return nil, false
			}
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Visible returns the full variable namespace an expression can see:
// every output binding plus the starter input under InputKey.
// The returned map is a fresh copy; mutating it does not affect the scope.
func (s *Scope) Visible() map[string]any {
	out := make(map[string]any, len(s.Vars)+1)
	for k, v := range s.Vars {
		out[k] = v
	}
	out[InputKey] = s.Input
	return out
}

// WithInput returns the scope after setting the starter input.
// This is useful for fluent initialization.
func (s *Scope) WithInput(input any) *Scope {
	s.Input = input
	return s
}

// WithVar returns the scope after binding a variable.
// This is useful for fluent initialization.
func (s *Scope) WithVar(name string, value any) *Scope {
	s.Set(name, value)
	return s
}
