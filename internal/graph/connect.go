package graph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
)

// Connect adds an edge from an output slot to an input slot. Connecting an
// existing edge is a no-op. On error the graph is unchanged.
func (g *Graph) Connect(source, target SlotRef) error {
	srcNode, ok := g.nodes[source.Node]
	if !ok {
		return notFound("source node %s", source.Node)
	}
	dstNode, ok := g.nodes[target.Node]
	if !ok {
		return notFound("target node %s", target.Node)
	}
	srcSlot, ok := srcNode.Output(source.Slot)
	if !ok {
		return notFound("output slot %q on node %s", source.Slot, srcNode.Name)
	}
	dstSlot, ok := dstNode.Input(target.Slot)
	if !ok {
		return notFound("input slot %q on node %s", target.Slot, dstNode.Name)
	}

	e := Edge{Source: source, Target: target}
	if _, exists := g.edges[e]; exists {
		return nil
	}

	if source.Node == target.Node {
		return &CycleError{Path: []string{srcNode.Name, srcNode.Name}}
	}
	if !g.reg.Assignable(srcSlot.Kind, dstSlot.Kind) {
		return &TypeMismatchError{Source: source, Target: target, SourceKind: srcSlot.Kind, TargetKind: dstSlot.Kind}
	}
	if existing := g.incoming[target]; !dstSlot.Multiple && len(existing) > 0 {
		return &SlotCapacityError{Target: target, Existing: existing[0]}
	}
	if path := g.path(target.Node, source.Node); path != nil {
		names := make([]string, 0, len(path)+1)
		for _, id := range path {
			names = append(names, g.nodes[id].Name)
		}
		names = append(names, dstNode.Name)
		return &CycleError{Path: names}
	}

	g.addEdge(e)
	g.publish(EdgeAdded{Edge: e})
	return nil
}

// Disconnect removes an edge. It reports whether the edge existed.
func (g *Graph) Disconnect(source, target SlotRef) bool {
	e := Edge{Source: source, Target: target}
	if _, exists := g.edges[e]; !exists {
		return false
	}
	g.removeEdge(e)
	g.publish(EdgeRemoved{Edge: e})
	return true
}

// HasEdge reports whether the edge exists.
func (g *Graph) HasEdge(source, target SlotRef) bool {
	_, ok := g.edges[Edge{Source: source, Target: target}]
	return ok
}

// IncomingSourceSlots returns the output slots feeding an input slot.
func (g *Graph) IncomingSourceSlots(input SlotRef) []SlotRef {
	return sortedRefs(g.incoming[input])
}

// OutgoingTargetSlots returns the input slots fed by an output slot.
func (g *Graph) OutgoingTargetSlots(output SlotRef) []SlotRef {
	return sortedRefs(g.outgoing[output])
}

// ReconfigureSlots replaces a node's slot layout. Edges whose slot vanished,
// whose kinds no longer match, or that exceed the new capacity of an input
// are dropped and returned.
func (g *Graph) ReconfigureSlots(id uuid.UUID, inputs, outputs []node.Slot) ([]Edge, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, notFound("node %s", id)
	}
	if err := checkSlots(inputs, node.Input); err != nil {
		return nil, err
	}
	if err := checkSlots(outputs, node.Output); err != nil {
		return nil, err
	}

	n.Inputs = append([]node.Slot(nil), inputs...)
	n.Outputs = append([]node.Slot(nil), outputs...)

	var dropped []Edge
	kept := make(map[SlotRef]int)
	for _, e := range g.incidentEdges(id) {
		if !g.edgeFits(e, kept) {
			dropped = append(dropped, e)
			g.removeEdge(e)
		}
	}

	g.publish(SlotsReconfigured{Node: n, Dropped: dropped})
	return dropped, nil
}

// edgeFits checks an existing edge against the current slot layouts. kept
// counts edges already accepted per target for the capacity check.
func (g *Graph) edgeFits(e Edge, kept map[SlotRef]int) bool {
	src, dst := g.nodes[e.Source.Node], g.nodes[e.Target.Node]
	srcSlot, ok := src.Output(e.Source.Slot)
	if !ok {
		return false
	}
	dstSlot, ok := dst.Input(e.Target.Slot)
	if !ok {
		return false
	}
	if !g.reg.Assignable(srcSlot.Kind, dstSlot.Kind) {
		return false
	}
	if !dstSlot.Multiple && kept[e.Target] > 0 {
		return false
	}
	kept[e.Target]++
	return true
}

func checkSlots(slots []node.Slot, dir node.Direction) error {
	seen := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if s.Name == "" {
			return fmt.Errorf("%s slot with empty name", dir)
		}
		if s.Direction != dir {
			return fmt.Errorf("slot %q listed as %s but declared %s", s.Name, dir, s.Direction)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate %s slot %q", dir, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

func (g *Graph) addEdge(e Edge) {
	g.edges[e] = struct{}{}
	g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
}

func (g *Graph) removeEdge(e Edge) {
	delete(g.edges, e)
	g.incoming[e.Target] = removeRef(g.incoming[e.Target], e.Source)
	if len(g.incoming[e.Target]) == 0 {
		delete(g.incoming, e.Target)
	}
	g.outgoing[e.Source] = removeRef(g.outgoing[e.Source], e.Target)
	if len(g.outgoing[e.Source]) == 0 {
		delete(g.outgoing, e.Source)
	}
}

func removeRef(refs []SlotRef, r SlotRef) []SlotRef {
	out := refs[:0]
	for _, x := range refs {
		if x != r {
			out = append(out, x)
		}
	}
	return out
}

func sortedRefs(refs []SlotRef) []SlotRef {
	out := append([]SlotRef(nil), refs...)
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
