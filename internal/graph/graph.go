package graph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
)

// SlotRef identifies one slot of one node.
type SlotRef struct {
	Node uuid.UUID
	Slot string
}

func (s SlotRef) String() string {
	return fmt.Sprintf("%s.%s", s.Node, s.Slot)
}

func (s SlotRef) less(o SlotRef) bool {
	if s.Node != o.Node {
		return s.Node.String() < o.Node.String()
	}
	return s.Slot < o.Slot
}

// Edge is a directed connection from an output slot to an input slot.
type Edge struct {
	Source SlotRef
	Target SlotRef
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Target)
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source.less(edges[j].Source)
		}
		return edges[i].Target.less(edges[j].Target)
	})
}

// Compartment is a named grouping of nodes.
type Compartment struct {
	ID   uuid.UUID
	Name string
}

// NewCompartment creates a compartment with a fresh ID.
func NewCompartment(name string) *Compartment {
	return &Compartment{ID: uuid.New(), Name: name}
}

// Graph is the node graph. See the package documentation for invariants.
type Graph struct {
	reg          *registry.Registry
	nodes        map[uuid.UUID]*node.Node
	compartments map[uuid.UUID]*Compartment
	edges        map[Edge]struct{}
	// incoming maps a target slot to its sources; outgoing the reverse.
	incoming map[SlotRef][]SlotRef
	outgoing map[SlotRef][]SlotRef

	listeners     map[int]Listener
	listenerOrder []int
	nextListener  int
}

// New creates an empty graph whose slot kinds are resolved by reg.
func New(reg *registry.Registry) *Graph {
	return &Graph{
		reg:          reg,
		nodes:        make(map[uuid.UUID]*node.Node),
		compartments: make(map[uuid.UUID]*Compartment),
		edges:        make(map[Edge]struct{}),
		incoming:     make(map[SlotRef][]SlotRef),
		outgoing:     make(map[SlotRef][]SlotRef),
		listeners:    make(map[int]Listener),
	}
}

// Registry returns the registry the graph was built with.
func (g *Graph) Registry() *registry.Registry { return g.reg }

// InsertNode adds n to the graph inside compartment compartmentID, which may
// be uuid.Nil for nodes outside any compartment.
func (g *Graph) InsertNode(n *node.Node, compartmentID uuid.UUID) error {
	if _, exists := g.nodes[n.ID]; exists {
		return &DuplicateIDError{What: "node", ID: n.ID}
	}
	if compartmentID != uuid.Nil {
		if _, ok := g.compartments[compartmentID]; !ok {
			return notFound("compartment %s", compartmentID)
		}
	}
	n.Compartment = compartmentID
	g.nodes[n.ID] = n
	g.publish(NodeAdded{Node: n})
	return nil
}

// RemoveResult describes what RemoveNode changed, enough to reverse it.
type RemoveResult struct {
	Node *node.Node
	// Removed lists the node's former edges.
	Removed []Edge
	// Reconnected lists edges added to bridge the removed node.
	Reconnected []Edge
	// Skipped explains bridges that could not be made.
	Skipped []error
}

// RemoveNode removes a node and all its edges. With keepEdges set, every
// source feeding the node is first reconnected to every target the node fed
// from the matching output: the same-named output, or the only output of a
// node with a single input and output. Bridges that would violate an
// invariant are skipped and reported in the result.
func (g *Graph) RemoveNode(id uuid.UUID, keepEdges bool) (*RemoveResult, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, notFound("node %s", id)
	}

	res := &RemoveResult{Node: n, Removed: g.incidentEdges(id)}
	for _, e := range res.Removed {
		g.removeEdge(e)
	}
	delete(g.nodes, id)

	if keepEdges {
		for _, in := range res.Removed {
			if in.Target.Node != id {
				continue
			}
			for _, out := range res.Removed {
				if out.Source.Node != id || !bridges(n, in.Target.Slot, out.Source.Slot) {
					continue
				}
				bridge := Edge{Source: in.Source, Target: out.Target}
				if g.HasEdge(bridge.Source, bridge.Target) {
					// Already present: not created here, so not undone either.
					continue
				}
				if err := g.Connect(bridge.Source, bridge.Target); err != nil {
					res.Skipped = append(res.Skipped, fmt.Errorf("bridge %s: %w", bridge, err))
					continue
				}
				res.Reconnected = append(res.Reconnected, bridge)
			}
		}
	}

	g.publish(NodeRemoved{Node: n, Edges: res.Removed})
	return res, nil
}

// bridges reports whether data entering input flows out of output when n
// is collapsed.
func bridges(n *node.Node, input, output string) bool {
	if input == output {
		return true
	}
	return len(n.Inputs) == 1 && len(n.Outputs) == 1
}

// Node returns the node with the given ID.
func (g *Graph) Node(id uuid.UUID) (*node.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns all edges in a stable order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sortEdges(out)
	return out
}

// AddCompartment registers a compartment.
func (g *Graph) AddCompartment(c *Compartment) error {
	if _, exists := g.compartments[c.ID]; exists {
		return &DuplicateIDError{What: "compartment", ID: c.ID}
	}
	g.compartments[c.ID] = c
	g.publish(CompartmentAdded{Compartment: c})
	return nil
}

// RemoveCompartmentResult describes what RemoveCompartment changed.
type RemoveCompartmentResult struct {
	Compartment *Compartment
	Nodes       []*node.Node
	Edges       []Edge
}

// RemoveCompartment removes a compartment together with its member nodes
// and their edges.
func (g *Graph) RemoveCompartment(id uuid.UUID) (*RemoveCompartmentResult, error) {
	c, ok := g.compartments[id]
	if !ok {
		return nil, notFound("compartment %s", id)
	}
	res := &RemoveCompartmentResult{Compartment: c}
	seen := make(map[Edge]struct{})
	for _, n := range g.CompartmentNodes(id) {
		for _, e := range g.incidentEdges(n.ID) {
			if _, dup := seen[e]; !dup {
				seen[e] = struct{}{}
				res.Edges = append(res.Edges, e)
			}
		}
		res.Nodes = append(res.Nodes, n)
	}
	sortEdges(res.Edges)
	for _, n := range res.Nodes {
		if _, err := g.RemoveNode(n.ID, false); err != nil {
			return nil, err
		}
	}
	delete(g.compartments, id)
	g.publish(CompartmentRemoved{Compartment: c})
	return res, nil
}

// Compartment returns the compartment with the given ID.
func (g *Graph) Compartment(id uuid.UUID) (*Compartment, bool) {
	c, ok := g.compartments[id]
	return c, ok
}

// Compartments returns all compartments sorted by name, then ID.
func (g *Graph) Compartments() []*Compartment {
	out := make([]*Compartment, 0, len(g.compartments))
	for _, c := range g.compartments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// CompartmentNodes returns the members of a compartment sorted by ID.
func (g *Graph) CompartmentNodes(id uuid.UUID) []*node.Node {
	var out []*node.Node
	for _, n := range g.Nodes() {
		if n.Compartment == id {
			out = append(out, n)
		}
	}
	return out
}

// CompartmentOutputs returns the members of a compartment that expose data
// to other compartments.
func (g *Graph) CompartmentOutputs(id uuid.UUID) []*node.Node {
	var out []*node.Node
	for _, n := range g.CompartmentNodes(id) {
		if n.Kind.Has(node.KindCompartmentBoundary) || n.Kind.Has(node.KindUserDefinedOutput) {
			out = append(out, n)
		}
	}
	return out
}

// SetParams reconfigures a node through the registry.
func (g *Graph) SetParams(id uuid.UUID, params node.Params) error {
	n, ok := g.nodes[id]
	if !ok {
		return notFound("node %s", id)
	}
	if err := g.reg.Configure(n, params); err != nil {
		return err
	}
	g.publish(NodeChanged{Node: n, Field: "params"})
	return nil
}

// SetEnabled enables or disables a node.
func (g *Graph) SetEnabled(id uuid.UUID, enabled bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return notFound("node %s", id)
	}
	n.Enabled = enabled
	g.publish(NodeChanged{Node: n, Field: "enabled"})
	return nil
}

// SetPassThrough sets a node's pass-through flag.
func (g *Graph) SetPassThrough(id uuid.UUID, passThrough bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return notFound("node %s", id)
	}
	n.PassThrough = passThrough
	g.publish(NodeChanged{Node: n, Field: "pass_through"})
	return nil
}

func (g *Graph) incidentEdges(id uuid.UUID) []Edge {
	var out []Edge
	for e := range g.edges {
		if e.Source.Node == id || e.Target.Node == id {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}
