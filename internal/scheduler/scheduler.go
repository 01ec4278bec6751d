package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/node"
)

// Plan is the set of nodes a run executes, in topological order.
type Plan struct {
	// Order lists the planned nodes in deterministic topological order.
	Order []*node.Node
	// Deactivated holds disabled nodes and everything downstream of them.
	// Such nodes still run, as identities.
	Deactivated map[uuid.UUID]struct{}

	planned      map[uuid.UUID]*node.Node
	predecessors map[uuid.UUID][]uuid.UUID
	dependents   map[uuid.UUID][]uuid.UUID
}

// NewPlan plans a run over g. With no targets every node is planned;
// otherwise the targets and all their ancestors are.
func NewPlan(ctx context.Context, g *graph.Graph, targets ...uuid.UUID) (*Plan, error) {
	var selected map[uuid.UUID]struct{}
	if len(targets) > 0 {
		selected = g.Ancestors(targets...)
		for _, id := range targets {
			if _, ok := g.Node(id); !ok {
				return nil, fmt.Errorf("%w: target node %s", graph.ErrNotFound, id)
			}
			selected[id] = struct{}{}
		}
	}

	p := &Plan{
		Deactivated:  g.DeactivatedNodes(),
		planned:      make(map[uuid.UUID]*node.Node),
		predecessors: make(map[uuid.UUID][]uuid.UUID),
		dependents:   make(map[uuid.UUID][]uuid.UUID),
	}
	for n, err := range g.Topological() {
		if err != nil {
			return nil, err
		}
		if selected != nil {
			if _, ok := selected[n.ID]; !ok {
				continue
			}
		}
		p.Order = append(p.Order, n)
		p.planned[n.ID] = n
	}
	for _, n := range p.Order {
		for _, pred := range g.Predecessors(n.ID) {
			if _, ok := p.planned[pred]; !ok {
				continue
			}
			p.predecessors[n.ID] = append(p.predecessors[n.ID], pred)
			p.dependents[pred] = append(p.dependents[pred], n.ID)
		}
	}

	ctxlog.FromContext(ctx).Debug("Planned run.", "nodes", len(p.Order), "targets", len(targets), "deactivated", len(p.Deactivated))
	return p, nil
}

// Contains reports whether a node is part of the plan.
func (p *Plan) Contains(id uuid.UUID) bool {
	_, ok := p.planned[id]
	return ok
}

// Predecessors returns the planned direct predecessors of a node.
func (p *Plan) Predecessors(id uuid.UUID) []uuid.UUID { return p.predecessors[id] }

// Dependents returns the planned direct dependents of a node.
func (p *Plan) Dependents(id uuid.UUID) []uuid.UUID { return p.dependents[id] }

// DefaultScheduler releases the nodes of a Plan by in-degree counting.
type DefaultScheduler struct {
	plan      *Plan
	indegree  map[uuid.UUID]int
	done      map[uuid.UUID]struct{}
	remaining int
}

// New creates a scheduler over plan.
func New(plan *Plan) Scheduler {
	s := &DefaultScheduler{
		plan:      plan,
		indegree:  make(map[uuid.UUID]int, len(plan.Order)),
		done:      make(map[uuid.UUID]struct{}, len(plan.Order)),
		remaining: len(plan.Order),
	}
	for _, n := range plan.Order {
		s.indegree[n.ID] = len(plan.predecessors[n.ID])
	}
	return s
}

// Ready implements Scheduler.
func (s *DefaultScheduler) Ready() []*node.Node {
	var out []*node.Node
	for _, n := range s.plan.Order {
		if s.indegree[n.ID] == 0 {
			out = append(out, n)
		}
	}
	sortByID(out)
	return out
}

// Done implements Scheduler. Reporting a node twice is ignored.
func (s *DefaultScheduler) Done(id uuid.UUID) []*node.Node {
	if _, seen := s.done[id]; seen || !s.plan.Contains(id) {
		return nil
	}
	s.done[id] = struct{}{}
	s.remaining--

	var out []*node.Node
	for _, dep := range s.plan.dependents[id] {
		s.indegree[dep]--
		if s.indegree[dep] == 0 {
			out = append(out, s.plan.planned[dep])
		}
	}
	sortByID(out)
	return out
}

// Pending implements Scheduler.
func (s *DefaultScheduler) Pending() int { return s.remaining }

func sortByID(nodes []*node.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID.String() < nodes[j].ID.String() })
}
