// Package node defines the Node, the configured processing unit of a graph,
// together with its slots, capabilities and the contract its algorithm
// implements.
package node

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/iteration"
)

// Node is a single vertex of a graph. Structural fields (slots, compartment)
// are changed through the graph so that edges stay consistent; the graph
// hands out pointers for reading.
type Node struct {
	// ID is the node's identity within its graph.
	ID uuid.UUID
	// Name is the human-readable instance name.
	// Example: "threshold"
	Name string
	// Type is the registered node type that built this node.
	Type string
	// Kind is the node's capability set.
	Kind Kind
	// Compartment is the ID of the compartment the node belongs to.
	Compartment uuid.UUID

	Inputs  []Slot
	Outputs []Slot

	// Params is the node's current configuration.
	Params Params
	// Iteration configures how input rows are grouped into steps.
	Iteration iteration.Options

	// Enabled is false for nodes the user disabled. Disabled nodes forward
	// their inputs unchanged.
	Enabled bool
	// PassThrough makes an enabled node forward its inputs unchanged.
	PassThrough bool

	// Algorithm does the node's work. It may be nil for nodes whose Kind
	// includes KindPassThrough.
	Algorithm Algorithm
}

// New creates an enabled node with a fresh ID.
func New(name, nodeType string) *Node {
	return &Node{
		ID:      uuid.New(),
		Name:    name,
		Type:    nodeType,
		Params:  NewParams(nil),
		Enabled: true,
	}
}

// String describes the node for logs and errors.
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Name, n.ID)
}

// IsIdentity reports whether running the node forwards inputs to the
// same-named outputs instead of invoking its algorithm.
func (n *Node) IsIdentity() bool {
	return !n.Enabled || n.PassThrough || n.Kind.Has(KindPassThrough)
}

// Input returns the named input slot.
func (n *Node) Input(name string) (Slot, bool) {
	return findSlot(n.Inputs, name)
}

// Output returns the named output slot.
func (n *Node) Output(name string) (Slot, bool) {
	return findSlot(n.Outputs, name)
}

// Slot returns the named slot of the given direction.
func (n *Node) Slot(dir Direction, name string) (Slot, bool) {
	if dir == Input {
		return n.Input(name)
	}
	return n.Output(name)
}

// Clone returns a copy of the node with its own slot slices. The algorithm
// and params are shared, both being immutable from the graph's perspective.
func (n *Node) Clone() *Node {
	c := *n
	c.Inputs = append([]Slot(nil), n.Inputs...)
	c.Outputs = append([]Slot(nil), n.Outputs...)
	c.Iteration.Columns = append([]string(nil), n.Iteration.Columns...)
	return &c
}

func findSlot(slots []Slot, name string) (Slot, bool) {
	for _, s := range slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}
