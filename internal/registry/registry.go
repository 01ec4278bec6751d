package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// AnyKind is the root data kind; slots of this kind accept everything.
const AnyKind datatable.Kind = "any"

// Built-in node types available in every registry.
const (
	PassThroughType       = "pass_through"
	CompartmentOutputType = "compartment_output"
)

// Module is the interface that all node-type modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// ParamDef declares one parameter of a node type.
type ParamDef struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Required    bool
	Description string
}

// NodeType describes how to build nodes of one type.
type NodeType struct {
	Name        string
	Description string
	Kind        node.Kind
	Inputs      []node.Slot
	Outputs     []node.Slot
	Params      []ParamDef
	// Iteration is the default step grouping for nodes of this type.
	Iteration iteration.Options
	// New builds the algorithm for a configuration. It may be nil only for
	// types with the KindPassThrough capability.
	New func(params node.Params) (node.Algorithm, error)
}

// Registry holds the data kinds and node types of a single application instance.
type Registry struct {
	kinds map[datatable.Kind]datatable.Kind
	types map[string]*NodeType
}

// New creates a Registry containing AnyKind and the built-in node types.
func New() *Registry {
	r := &Registry{
		kinds: map[datatable.Kind]datatable.Kind{AnyKind: ""},
		types: make(map[string]*NodeType),
	}
	r.RegisterNodeType(&NodeType{
		Name:        PassThroughType,
		Description: "Forwards its input unchanged.",
		Kind:        node.KindPassThrough,
		Inputs:      []node.Slot{{Name: "data", Direction: node.Input, Kind: AnyKind, Multiple: true}},
		Outputs:     []node.Slot{node.OutputSlot("data", AnyKind)},
	})
	r.RegisterNodeType(&NodeType{
		Name:        CompartmentOutputType,
		Description: "Exposes data of a compartment to other compartments.",
		Kind:        node.KindPassThrough | node.KindCompartmentBoundary | node.KindUserDefinedOutput,
		Inputs:      []node.Slot{{Name: "data", Direction: node.Input, Kind: AnyKind, Multiple: true}},
		Outputs:     []node.Slot{node.OutputSlot("data", AnyKind)},
	})
	return r
}

// RegisterKind declares a data kind as a child of parent.
func (r *Registry) RegisterKind(kind, parent datatable.Kind) {
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("data kind '%s' already registered", kind))
	}
	if _, ok := r.kinds[parent]; !ok {
		panic(fmt.Sprintf("parent kind '%s' of '%s' is not registered", parent, kind))
	}
	slog.Debug("Registering data kind.", "kind", kind, "parent", parent)
	r.kinds[kind] = parent
}

// HasKind reports whether kind is registered.
func (r *Registry) HasKind(kind datatable.Kind) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Assignable reports whether data of kind from may flow into a slot of kind to.
// AnyKind outputs, such as those of pass-through nodes, fit every input.
func (r *Registry) Assignable(from, to datatable.Kind) bool {
	if to == AnyKind || from == AnyKind {
		return true
	}
	for k := from; k != ""; k = r.kinds[k] {
		if k == to {
			return true
		}
		if _, ok := r.kinds[k]; !ok {
			return false
		}
	}
	return false
}

// RegisterNodeType adds a node type.
func (r *Registry) RegisterNodeType(t *NodeType) {
	if _, exists := r.types[t.Name]; exists {
		panic(fmt.Sprintf("node type '%s' already registered", t.Name))
	}
	slog.Debug("Registering node type.", "name", t.Name, "kind", t.Kind)
	r.types[t.Name] = t
}

// NodeType returns the named node type.
func (r *Registry) NodeType(name string) (*NodeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// NodeTypes returns the sorted names of all registered node types.
func (r *Registry) NodeTypes() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewNode builds a node of the named type, applying defaults and checking
// params against the type's declarations.
func (r *Registry) NewNode(typeName, name string, params map[string]cty.Value) (*node.Node, error) {
	t, ok := r.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", typeName)
	}
	n := node.New(name, typeName)
	n.Kind = t.Kind
	n.Inputs = append([]node.Slot(nil), t.Inputs...)
	n.Outputs = append([]node.Slot(nil), t.Outputs...)
	n.Iteration = t.Iteration
	n.Iteration.Columns = append([]string(nil), t.Iteration.Columns...)
	if err := r.Configure(n, node.NewParams(params)); err != nil {
		return nil, err
	}
	return n, nil
}

// Configure checks params against the node's type, fills defaults, and
// rebuilds the node's algorithm. On error the node is unchanged.
func (r *Registry) Configure(n *node.Node, params node.Params) error {
	t, ok := r.types[n.Type]
	if !ok {
		return fmt.Errorf("unknown node type %q", n.Type)
	}
	resolved, err := t.resolveParams(params)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.Name, err)
	}
	var alg node.Algorithm
	if t.New != nil {
		if alg, err = t.New(resolved); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	n.Params = resolved
	n.Algorithm = alg
	return nil
}
