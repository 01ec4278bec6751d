package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/nodeid"
)

// Lookup resolves a declared address to a node. Unqualified addresses must
// be unambiguous across compartments.
func (g *Graph) Lookup(addr nodeid.Address) (*node.Node, error) {
	var match *node.Node
	for _, n := range g.Nodes() {
		if n.Name != addr.Node {
			continue
		}
		if addr.Compartment != "" {
			c, ok := g.compartments[n.Compartment]
			if !ok || c.Name != addr.Compartment {
				continue
			}
		}
		if match != nil {
			return nil, fmt.Errorf("address %s is ambiguous: matches %s and %s", addr, match, n)
		}
		match = n
	}
	if match == nil {
		return nil, notFound("node %s", addr)
	}
	if addr.HasSlot() {
		if _, ok := match.Input(addr.Slot); !ok {
			if _, ok := match.Output(addr.Slot); !ok {
				return nil, notFound("slot %s", addr)
			}
		}
	}
	return match, nil
}

// UnconnectedInputs returns the required input slots without any edge.
func (g *Graph) UnconnectedInputs() []SlotRef {
	var out []SlotRef
	for _, n := range g.Nodes() {
		for _, s := range n.Inputs {
			ref := SlotRef{Node: n.ID, Slot: s.Name}
			if !s.Optional && len(g.incoming[ref]) == 0 {
				out = append(out, ref)
			}
		}
	}
	return out
}

// DeactivatedNodes returns the disabled nodes and everything downstream of
// them: the part of the graph whose results are affected by disabling.
func (g *Graph) DeactivatedNodes() map[uuid.UUID]struct{} {
	var disabled []uuid.UUID
	for id, n := range g.nodes {
		if !n.Enabled {
			disabled = append(disabled, id)
		}
	}
	out := g.Descendants(disabled...)
	for _, id := range disabled {
		out[id] = struct{}{}
	}
	return out
}

// CompartmentGraph returns, per compartment, the sorted compartments it
// feeds. Edges inside one compartment are ignored.
func (g *Graph) CompartmentGraph() map[uuid.UUID][]uuid.UUID {
	sets := make(map[uuid.UUID]map[uuid.UUID]struct{}, len(g.compartments))
	for id := range g.compartments {
		sets[id] = make(map[uuid.UUID]struct{})
	}
	for e := range g.edges {
		from := g.nodes[e.Source.Node].Compartment
		to := g.nodes[e.Target.Node].Compartment
		if from == to || from == uuid.Nil || to == uuid.Nil {
			continue
		}
		sets[from][to] = struct{}{}
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(sets))
	for id, set := range sets {
		out[id] = sortedIDs(set)
	}
	return out
}

// Validate checks the graph and every node's configuration, returning all
// issues found. Disabled and pass-through nodes are not asked to validate
// their configuration since their algorithm does not run.
func (g *Graph) Validate(ctx context.Context) []node.ValidationIssue {
	var issues []node.ValidationIssue
	if cycle := g.findCycle(); cycle != nil {
		issues = append(issues, node.ValidationIssue{Severity: node.SeverityError, Message: cycle.Error()})
	}

	for _, ref := range g.UnconnectedInputs() {
		n := g.nodes[ref.Node]
		issues = append(issues, node.Errorf(n, "input slot %q is not connected", ref.Slot))
	}

	for _, n := range g.Nodes() {
		for _, s := range append(append([]node.Slot(nil), n.Inputs...), n.Outputs...) {
			if !g.reg.HasKind(s.Kind) {
				issues = append(issues, node.Errorf(n, "slot %q uses unknown data kind %q", s.Name, s.Kind))
			}
		}
		if n.Compartment != uuid.Nil {
			if _, ok := g.compartments[n.Compartment]; !ok {
				issues = append(issues, node.Errorf(n, "belongs to unknown compartment %s", n.Compartment))
			}
		}
		if n.IsIdentity() {
			if !n.Enabled {
				issues = append(issues, node.Warnf(n, "node is disabled and forwards its inputs"))
			}
			continue
		}
		if n.Algorithm == nil {
			issues = append(issues, node.Errorf(n, "node type %q has no algorithm", n.Type))
			continue
		}
		issues = append(issues, n.Algorithm.Validate(ctx, n)...)
	}
	return issues
}

// Errors filters issues down to those of error severity.
func Errors(issues []node.ValidationIssue) []node.ValidationIssue {
	var out []node.ValidationIssue
	for _, i := range issues {
		if i.Severity == node.SeverityError {
			out = append(out, i)
		}
	}
	return out
}
