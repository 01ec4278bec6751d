package history

import (
	"context"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/node"
)

// Editor performs graph edits and records their snapshots. A snapshot is
// recorded only when the edit succeeded.
type Editor struct {
	Graph   *graph.Graph
	Journal *Journal

	// batch collects snapshots while a Batch call is in progress.
	batch *Compound
}

// NewEditor creates an editor over g with a journal of the given capacity.
func NewEditor(g *graph.Graph, capacity int) *Editor {
	return &Editor{Graph: g, Journal: NewJournal(g, capacity)}
}

func (e *Editor) record(s Snapshot) {
	if e.batch != nil {
		e.batch.Children = append(e.batch.Children, s)
		return
	}
	e.Journal.Record(s)
}

// Undo reverts the last recorded edit.
func (e *Editor) Undo(ctx context.Context) error { return e.Journal.Undo(ctx) }

// Redo re-applies the last undone edit.
func (e *Editor) Redo(ctx context.Context) error { return e.Journal.Redo(ctx) }

// Batch runs fn and records every edit it makes as one compound snapshot.
// If fn fails, the edits it made are reverted and nothing is recorded.
func (e *Editor) Batch(fn func(*Editor) error) error {
	if e.batch != nil {
		return fn(e)
	}
	e.batch = &Compound{}
	defer func() { e.batch = nil }()

	if err := fn(e); err != nil {
		_ = e.batch.Undo(e.Graph)
		return err
	}
	if len(e.batch.Children) > 0 {
		e.Journal.Record(e.batch)
	}
	return nil
}

// AddNode inserts n into compartment.
func (e *Editor) AddNode(n *node.Node, compartment uuid.UUID) error {
	if err := e.Graph.InsertNode(n, compartment); err != nil {
		return err
	}
	e.record(&AddNode{Node: n, Compartment: compartment})
	return nil
}

// RemoveNode removes a node, optionally bridging its edges.
func (e *Editor) RemoveNode(id uuid.UUID, keepEdges bool) (*graph.RemoveResult, error) {
	n, ok := e.Graph.Node(id)
	if !ok {
		_, err := e.Graph.RemoveNode(id, keepEdges)
		return nil, err
	}
	compartment := n.Compartment
	res, err := e.Graph.RemoveNode(id, keepEdges)
	if err != nil {
		return nil, err
	}
	e.record(&RemoveNode{Result: res, Compartment: compartment, KeepEdges: keepEdges})
	return res, nil
}

// Connect adds an edge. Connecting an existing edge records nothing.
func (e *Editor) Connect(source, target graph.SlotRef) error {
	if e.Graph.HasEdge(source, target) {
		return nil
	}
	if err := e.Graph.Connect(source, target); err != nil {
		return err
	}
	e.record(&Connect{Edge: graph.Edge{Source: source, Target: target}})
	return nil
}

// Disconnect removes an edge and reports whether it existed.
func (e *Editor) Disconnect(source, target graph.SlotRef) bool {
	if !e.Graph.Disconnect(source, target) {
		return false
	}
	e.record(&Disconnect{Edge: graph.Edge{Source: source, Target: target}})
	return true
}

// AddCompartment creates a compartment.
func (e *Editor) AddCompartment(c *graph.Compartment) error {
	if err := e.Graph.AddCompartment(c); err != nil {
		return err
	}
	e.record(&AddCompartment{Compartment: c})
	return nil
}

// RemoveCompartment removes a compartment and its members.
func (e *Editor) RemoveCompartment(id uuid.UUID) error {
	res, err := e.Graph.RemoveCompartment(id)
	if err != nil {
		return err
	}
	e.record(&RemoveCompartment{Result: res})
	return nil
}

// ReconfigureSlots replaces a node's slot layout.
func (e *Editor) ReconfigureSlots(id uuid.UUID, inputs, outputs []node.Slot) ([]graph.Edge, error) {
	n, ok := e.Graph.Node(id)
	if !ok {
		return e.Graph.ReconfigureSlots(id, inputs, outputs)
	}
	s := &ReconfigureSlots{
		NodeID:    id,
		OldInputs: append([]node.Slot(nil), n.Inputs...),
		OldOutput: append([]node.Slot(nil), n.Outputs...),
		NewInputs: append([]node.Slot(nil), inputs...),
		NewOutput: append([]node.Slot(nil), outputs...),
	}
	dropped, err := e.Graph.ReconfigureSlots(id, inputs, outputs)
	if err != nil {
		return nil, err
	}
	s.Dropped = dropped
	e.record(s)
	return dropped, nil
}

// SetParams reconfigures a node.
func (e *Editor) SetParams(id uuid.UUID, params node.Params) error {
	n, ok := e.Graph.Node(id)
	if !ok {
		return e.Graph.SetParams(id, params)
	}
	old := n.Params
	if err := e.Graph.SetParams(id, params); err != nil {
		return err
	}
	e.record(&SetParams{NodeID: id, NodeName: n.Name, Old: old, New: n.Params})
	return nil
}

// SetEnabled enables or disables a node.
func (e *Editor) SetEnabled(id uuid.UUID, enabled bool) error {
	return e.setFlag(id, FlagEnabled, enabled)
}

// SetPassThrough sets a node's pass-through flag.
func (e *Editor) SetPassThrough(id uuid.UUID, passThrough bool) error {
	return e.setFlag(id, FlagPassThrough, passThrough)
}

func (e *Editor) setFlag(id uuid.UUID, flag Flag, v bool) error {
	n, ok := e.Graph.Node(id)
	if !ok {
		return e.Graph.SetEnabled(id, v)
	}
	s := &SetFlag{NodeID: id, NodeName: n.Name, Flag: flag, New: v}
	if flag == FlagEnabled {
		s.Old = n.Enabled
	} else {
		s.Old = n.PassThrough
	}
	if err := s.Redo(e.Graph); err != nil {
		return err
	}
	e.record(s)
	return nil
}

// Paste merges a copy of other into the graph with fresh node IDs.
func (e *Editor) Paste(other *graph.Graph) (*graph.MergeResult, error) {
	res, err := e.Graph.Merge(other)
	if err != nil {
		return nil, err
	}
	s := &Paste{Edges: res.Edges}
	for _, id := range res.Compartments {
		if c, ok := e.Graph.Compartment(id); ok {
			s.Compartments = append(s.Compartments, c)
		}
	}
	for _, src := range other.Nodes() {
		if n, ok := e.Graph.Node(res.NodeIDs[src.ID]); ok {
			s.Nodes = append(s.Nodes, n)
		}
	}
	e.record(s)
	return res, nil
}
