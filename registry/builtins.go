package registry

import "github.com/brick-labs/brickflow/bricks"

// registerBuiltins registers the built-in brick library.
// Called once when the global registry is initialized.
func registerBuiltins(r *Registry) {
	for _, b := range bricks.Builtins() {
		r.Register(b)
	}
}
