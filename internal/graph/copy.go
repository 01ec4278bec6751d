package graph

import (
	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
)

// Clone returns a deep structural copy with the same IDs. Listeners are not
// copied.
func (g *Graph) Clone() *Graph {
	out := New(g.reg)
	for id, c := range g.compartments {
		cp := *c
		out.compartments[id] = &cp
	}
	for id, n := range g.nodes {
		out.nodes[id] = n.Clone()
	}
	for e := range g.edges {
		out.addEdge(e)
	}
	return out
}

// Extract returns a new graph holding copies of the given nodes, the edges
// among them, and the compartments they belong to. IDs are preserved.
func (g *Graph) Extract(ids ...uuid.UUID) (*Graph, error) {
	out := New(g.reg)
	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			return nil, notFound("node %s", id)
		}
		if c, ok := g.compartments[n.Compartment]; ok {
			if _, have := out.compartments[c.ID]; !have {
				cp := *c
				out.compartments[c.ID] = &cp
			}
		}
		out.nodes[id] = n.Clone()
	}
	for e := range g.edges {
		_, src := out.nodes[e.Source.Node]
		_, dst := out.nodes[e.Target.Node]
		if src && dst {
			out.addEdge(e)
		}
	}
	return out, nil
}

// MergeResult describes what Merge added.
type MergeResult struct {
	// NodeIDs maps IDs in the pasted graph to the fresh IDs in this graph.
	NodeIDs map[uuid.UUID]uuid.UUID
	// Compartments lists compartments that did not exist before the merge.
	Compartments []uuid.UUID
	Edges        []Edge
}

// Merge pastes a copy of other into g. Nodes receive fresh IDs; compartments
// unknown to g are added with their IDs. Either everything is pasted or, on
// error, g is left unchanged.
func (g *Graph) Merge(other *Graph) (*MergeResult, error) {
	res := &MergeResult{NodeIDs: make(map[uuid.UUID]uuid.UUID, len(other.nodes))}

	var added []*node.Node
	rollback := func() {
		for i := len(res.Edges) - 1; i >= 0; i-- {
			g.Disconnect(res.Edges[i].Source, res.Edges[i].Target)
		}
		for _, n := range added {
			_, _ = g.RemoveNode(n.ID, false)
		}
		for _, id := range res.Compartments {
			delete(g.compartments, id)
		}
	}

	for _, c := range other.Compartments() {
		if _, exists := g.compartments[c.ID]; exists {
			continue
		}
		cp := *c
		if err := g.AddCompartment(&cp); err != nil {
			rollback()
			return nil, err
		}
		res.Compartments = append(res.Compartments, c.ID)
	}

	for _, n := range other.Nodes() {
		cp := n.Clone()
		cp.ID = uuid.New()
		res.NodeIDs[n.ID] = cp.ID
		if err := g.InsertNode(cp, n.Compartment); err != nil {
			rollback()
			return nil, err
		}
		added = append(added, cp)
	}

	for _, e := range other.Edges() {
		mapped := Edge{
			Source: SlotRef{Node: res.NodeIDs[e.Source.Node], Slot: e.Source.Slot},
			Target: SlotRef{Node: res.NodeIDs[e.Target.Node], Slot: e.Target.Slot},
		}
		if err := g.Connect(mapped.Source, mapped.Target); err != nil {
			rollback()
			return nil, err
		}
		res.Edges = append(res.Edges, mapped)
	}
	return res, nil
}

// Equal reports whether two graphs are structurally equal: the same
// compartments, the same nodes with equal configuration, and the same edges.
func Equal(a, b *Graph) bool {
	if len(a.nodes) != len(b.nodes) || len(a.edges) != len(b.edges) || len(a.compartments) != len(b.compartments) {
		return false
	}
	for id, c := range a.compartments {
		other, ok := b.compartments[id]
		if !ok || *other != *c {
			return false
		}
	}
	for id, n := range a.nodes {
		other, ok := b.nodes[id]
		if !ok || !nodesEqual(n, other) {
			return false
		}
	}
	for e := range a.edges {
		if _, ok := b.edges[e]; !ok {
			return false
		}
	}
	return true
}

func nodesEqual(a, b *node.Node) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Type == b.Type &&
		a.Kind == b.Kind &&
		a.Compartment == b.Compartment &&
		a.Enabled == b.Enabled &&
		a.PassThrough == b.PassThrough &&
		slotsEqual(a.Inputs, b.Inputs) &&
		slotsEqual(a.Outputs, b.Outputs) &&
		a.Params.Equal(b.Params)
}

func slotsEqual(a, b []node.Slot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
