// Package kinds registers the data kinds shared by the built-in modules.
package kinds

import "github.com/vk/slotflow/internal/registry"

const (
	Number  = "number"
	Integer = "integer"
	Text    = "text"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register declares number, integer (a number) and text.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Number, registry.AnyKind)
	r.RegisterKind(Integer, Number)
	r.RegisterKind(Text, registry.AnyKind)
}
