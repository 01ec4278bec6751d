package graph

import (
	"iter"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
)

// Predecessors returns the IDs of nodes with an edge into id, sorted.
func (g *Graph) Predecessors(id uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{})
	for e := range g.edges {
		if e.Target.Node == id {
			set[e.Source.Node] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// Successors returns the IDs of nodes fed by id, sorted.
func (g *Graph) Successors(id uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{})
	for e := range g.edges {
		if e.Source.Node == id {
			set[e.Target.Node] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// Ancestors returns every node upstream of the given nodes, excluding them
// unless they are upstream of each other.
func (g *Graph) Ancestors(ids ...uuid.UUID) map[uuid.UUID]struct{} {
	return g.closure(ids, g.adjacency(true))
}

// Descendants returns every node downstream of the given nodes.
func (g *Graph) Descendants(ids ...uuid.UUID) map[uuid.UUID]struct{} {
	return g.closure(ids, g.adjacency(false))
}

func (g *Graph) closure(start []uuid.UUID, adj map[uuid.UUID][]uuid.UUID) map[uuid.UUID]struct{} {
	seen := make(map[uuid.UUID]struct{})
	stack := append([]uuid.UUID(nil), start...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[id] {
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// adjacency builds node-level adjacency lists, reversed for upstream walks.
func (g *Graph) adjacency(reverse bool) map[uuid.UUID][]uuid.UUID {
	sets := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for e := range g.edges {
		from, to := e.Source.Node, e.Target.Node
		if reverse {
			from, to = to, from
		}
		if sets[from] == nil {
			sets[from] = make(map[uuid.UUID]struct{})
		}
		sets[from][to] = struct{}{}
	}
	adj := make(map[uuid.UUID][]uuid.UUID, len(sets))
	for id, set := range sets {
		adj[id] = sortedIDs(set)
	}
	return adj
}

// path returns a node path from -> ... -> to, or nil when to is unreachable.
func (g *Graph) path(from, to uuid.UUID) []uuid.UUID {
	adj := g.adjacency(false)
	parent := map[uuid.UUID]uuid.UUID{from: uuid.Nil}
	queue := []uuid.UUID{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			var path []uuid.UUID
			for cur := to; cur != uuid.Nil; cur = parent[cur] {
				path = append([]uuid.UUID{cur}, path...)
			}
			return path
		}
		for _, next := range adj[id] {
			if _, seen := parent[next]; !seen {
				parent[next] = id
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// Topological returns a restartable sequence of the nodes in topological
// order. Ties are broken by ID so that the order is deterministic. Each
// range over the sequence re-checks the graph; if it contains a cycle the
// sequence yields a single (nil, *CycleError) pair.
func (g *Graph) Topological() iter.Seq2[*node.Node, error] {
	return func(yield func(*node.Node, error) bool) {
		if cycle := g.findCycle(); cycle != nil {
			yield(nil, cycle)
			return
		}

		adj := g.adjacency(false)
		indegree := make(map[uuid.UUID]int, len(g.nodes))
		for _, targets := range adj {
			for _, t := range targets {
				indegree[t]++
			}
		}
		var ready []string
		for id := range g.nodes {
			if indegree[id] == 0 {
				ready = append(ready, id.String())
			}
		}
		sort.Strings(ready)

		for len(ready) > 0 {
			id := uuid.MustParse(ready[0])
			ready = ready[1:]
			if !yield(g.nodes[id], nil) {
				return
			}
			for _, next := range adj[id] {
				indegree[next]--
				if indegree[next] == 0 {
					ready = insertSorted(ready, next.String())
				}
			}
		}
	}
}

// TopologicalOrder collects Topological into a slice.
func (g *Graph) TopologicalOrder() ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(g.nodes))
	for n, err := range g.Topological() {
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// findCycle returns a CycleError describing one cycle, or nil.
func (g *Graph) findCycle() *CycleError {
	const (
		white = iota
		grey
		black
	)
	adj := g.adjacency(false)
	color := make(map[uuid.UUID]int, len(g.nodes))
	var stack []uuid.UUID
	var found []uuid.UUID

	var visit func(id uuid.UUID) bool
	visit = func(id uuid.UUID) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						found = append(append([]uuid.UUID(nil), stack[i:]...), next)
						return true
					}
				}
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white && visit(n.ID) {
			names := make([]string, len(found))
			for i, id := range found {
				names[i] = g.nodes[id].Name
			}
			return &CycleError{Path: names}
		}
	}
	return nil
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
