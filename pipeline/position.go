package pipeline

import (
	"fmt"
	"strings"

	"github.com/brick-labs/brickflow/core"
)

// Position identifies one node of a pipeline tree during traversal: the path
// from the root plus the branch frames entered along the way.
type Position struct {
	// Path is the dotted location of the node, e.g. "2.config.if.0".
	Path string

	// Branches are the (key, counter) frames entered to reach the node.
	Branches []core.Branch
}

// RootPosition is the position of the top-level pipeline.
func RootPosition() Position {
	return Position{}
}

// Index returns the position of the i-th invocation under this one.
func (p Position) Index(i int) Position {
	return Position{Path: p.join(fmt.Sprintf("%d", i)), Branches: p.Branches}
}

// Property returns the position of a configuration property.
func (p Position) Property(name string) Position {
	return Position{Path: p.join("config." + name), Branches: p.Branches}
}

// WithBranch returns the position with a branch frame appended. The frame
// slice is copied so sibling traversals never share backing arrays.
func (p Position) WithBranch(b core.Branch) Position {
	branches := make([]core.Branch, len(p.Branches), len(p.Branches)+1)
	copy(branches, p.Branches)
	return Position{Path: p.Path, Branches: append(branches, b)}
}

func (p Position) join(segment string) string {
	if p.Path == "" {
		return segment
	}
	return p.Path + "." + segment
}

// String renders the position path.
func (p Position) String() string {
	return p.Path
}

// BranchPath renders a branch frame list as a stable string key,
// e.g. "body:0/if:0". An empty frame list renders as "".
func BranchPath(branches []core.Branch) string {
	if len(branches) == 0 {
		return ""
	}
	parts := make([]string, len(branches))
	for i, b := range branches {
		parts[i] = fmt.Sprintf("%s:%d", b.Key, b.Counter)
	}
	return strings.Join(parts, "/")
}
