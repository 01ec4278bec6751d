package history

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/node"
)

// AddNode records the insertion of a node.
type AddNode struct {
	Node        *node.Node
	Compartment uuid.UUID
}

func (s *AddNode) Name() string { return "add " + s.Node.Name }

func (s *AddNode) Undo(g *graph.Graph) error {
	_, err := g.RemoveNode(s.Node.ID, false)
	return err
}

func (s *AddNode) Redo(g *graph.Graph) error {
	return g.InsertNode(s.Node, s.Compartment)
}

// RemoveNode records the removal of a node. Undo restores the node, its
// edges, and drops any bridge edges the removal created.
type RemoveNode struct {
	Result      *graph.RemoveResult
	Compartment uuid.UUID
	KeepEdges   bool
}

func (s *RemoveNode) Name() string { return "remove " + s.Result.Node.Name }

func (s *RemoveNode) Undo(g *graph.Graph) error {
	for _, e := range s.Result.Reconnected {
		g.Disconnect(e.Source, e.Target)
	}
	if err := g.InsertNode(s.Result.Node, s.Compartment); err != nil {
		return err
	}
	return connectAll(g, s.Result.Removed)
}

func (s *RemoveNode) Redo(g *graph.Graph) error {
	res, err := g.RemoveNode(s.Result.Node.ID, s.KeepEdges)
	if err != nil {
		return err
	}
	s.Result = res
	return nil
}

// Connect records a new edge.
type Connect struct {
	Edge graph.Edge
}

func (s *Connect) Name() string { return "connect" }

func (s *Connect) Undo(g *graph.Graph) error {
	g.Disconnect(s.Edge.Source, s.Edge.Target)
	return nil
}

func (s *Connect) Redo(g *graph.Graph) error {
	return g.Connect(s.Edge.Source, s.Edge.Target)
}

// Disconnect records a removed edge.
type Disconnect struct {
	Edge graph.Edge
}

func (s *Disconnect) Name() string { return "disconnect" }

func (s *Disconnect) Undo(g *graph.Graph) error {
	return g.Connect(s.Edge.Source, s.Edge.Target)
}

func (s *Disconnect) Redo(g *graph.Graph) error {
	g.Disconnect(s.Edge.Source, s.Edge.Target)
	return nil
}

// AddCompartment records a new, empty compartment.
type AddCompartment struct {
	Compartment *graph.Compartment
}

func (s *AddCompartment) Name() string { return "add compartment " + s.Compartment.Name }

func (s *AddCompartment) Undo(g *graph.Graph) error {
	_, err := g.RemoveCompartment(s.Compartment.ID)
	return err
}

func (s *AddCompartment) Redo(g *graph.Graph) error {
	return g.AddCompartment(s.Compartment)
}

// RemoveCompartment records the removal of a compartment with its members.
type RemoveCompartment struct {
	Result *graph.RemoveCompartmentResult
}

func (s *RemoveCompartment) Name() string { return "remove compartment " + s.Result.Compartment.Name }

func (s *RemoveCompartment) Undo(g *graph.Graph) error {
	if err := g.AddCompartment(s.Result.Compartment); err != nil {
		return err
	}
	for _, n := range s.Result.Nodes {
		if err := g.InsertNode(n, s.Result.Compartment.ID); err != nil {
			return err
		}
	}
	return connectAll(g, s.Result.Edges)
}

func (s *RemoveCompartment) Redo(g *graph.Graph) error {
	res, err := g.RemoveCompartment(s.Result.Compartment.ID)
	if err != nil {
		return err
	}
	s.Result = res
	return nil
}

// ReconfigureSlots records a slot layout change and the edges it dropped.
type ReconfigureSlots struct {
	NodeID               uuid.UUID
	OldInputs, OldOutput []node.Slot
	NewInputs, NewOutput []node.Slot
	Dropped              []graph.Edge
}

func (s *ReconfigureSlots) Name() string { return "reconfigure slots" }

func (s *ReconfigureSlots) Undo(g *graph.Graph) error {
	if _, err := g.ReconfigureSlots(s.NodeID, s.OldInputs, s.OldOutput); err != nil {
		return err
	}
	return connectAll(g, s.Dropped)
}

func (s *ReconfigureSlots) Redo(g *graph.Graph) error {
	dropped, err := g.ReconfigureSlots(s.NodeID, s.NewInputs, s.NewOutput)
	if err != nil {
		return err
	}
	s.Dropped = dropped
	return nil
}

// SetParams records a parameter change.
type SetParams struct {
	NodeID   uuid.UUID
	NodeName string
	Old, New node.Params
}

func (s *SetParams) Name() string { return "set params of " + s.NodeName }

func (s *SetParams) Undo(g *graph.Graph) error { return g.SetParams(s.NodeID, s.Old) }
func (s *SetParams) Redo(g *graph.Graph) error { return g.SetParams(s.NodeID, s.New) }

// Flag names a boolean node setting.
type Flag string

const (
	FlagEnabled     Flag = "enabled"
	FlagPassThrough Flag = "pass_through"
)

// SetFlag records a change of a boolean node setting.
type SetFlag struct {
	NodeID   uuid.UUID
	NodeName string
	Flag     Flag
	Old, New bool
}

func (s *SetFlag) Name() string { return fmt.Sprintf("set %s of %s", s.Flag, s.NodeName) }

func (s *SetFlag) Undo(g *graph.Graph) error { return s.apply(g, s.Old) }
func (s *SetFlag) Redo(g *graph.Graph) error { return s.apply(g, s.New) }

func (s *SetFlag) apply(g *graph.Graph, v bool) error {
	switch s.Flag {
	case FlagEnabled:
		return g.SetEnabled(s.NodeID, v)
	case FlagPassThrough:
		return g.SetPassThrough(s.NodeID, v)
	}
	return fmt.Errorf("unknown flag %q", s.Flag)
}

// Paste records a subgraph merged into the graph.
type Paste struct {
	Nodes        []*node.Node
	Compartments []*graph.Compartment
	Edges        []graph.Edge
}

func (s *Paste) Name() string { return fmt.Sprintf("paste %d nodes", len(s.Nodes)) }

func (s *Paste) Undo(g *graph.Graph) error {
	for _, n := range s.Nodes {
		if _, err := g.RemoveNode(n.ID, false); err != nil {
			return err
		}
	}
	for _, c := range s.Compartments {
		if _, err := g.RemoveCompartment(c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Paste) Redo(g *graph.Graph) error {
	for _, c := range s.Compartments {
		if err := g.AddCompartment(c); err != nil {
			return err
		}
	}
	for _, n := range s.Nodes {
		if err := g.InsertNode(n, n.Compartment); err != nil {
			return err
		}
	}
	return connectAll(g, s.Edges)
}

func connectAll(g *graph.Graph, edges []graph.Edge) error {
	for _, e := range edges {
		if err := g.Connect(e.Source, e.Target); err != nil {
			return fmt.Errorf("restore edge %s: %w", e, err)
		}
	}
	return nil
}
