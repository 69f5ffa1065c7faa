// Package expr provides the tagged expression values used in brick
// configuration and their resolution against a run's scope. Resolution is
// stateless and side-effect-free: no brick executes here, which dry-run and
// validation passes rely on.
package expr

import (
	"fmt"

	"github.com/brick-labs/brickflow/core"
)

// Engine identifies a template engine.
type Engine string

const (
	// EngineMustache renders {{var}} interpolation against the scope.
	EngineMustache Engine = "mustache"
)

// Expression is the interface implemented by all tagged configuration values.
// A configuration property is either a plain literal or one of the variants
// below, decoded from the __type__/__value__ envelope so a literal string and
// a templated string are never ambiguous.
type Expression interface {
	expression() // marker method
	String() string
}

// Template is a template string rendered by a named engine.
type Template struct {
	Engine Engine
	Source string
}

func (e *Template) expression() {}
func (e *Template) String() string {
	return fmt.Sprintf("%s(%q)", e.Engine, e.Source)
}

// Var is a direct variable reference into the scope, returning the value
// unconverted so non-string types survive resolution.
type Var struct {
	Path string
}

func (e *Var) expression() {}
func (e *Var) String() string {
	return "var(" + e.Path + ")"
}

// SubPipeline marks a property as holding a nested pipeline. The resolver
// passes it through unresolved; the execution engine runs it.
type SubPipeline struct {
	Ref core.PipelineRef
}

func (e *SubPipeline) expression() {}
func (e *SubPipeline) String() string {
	return "pipeline"
}
