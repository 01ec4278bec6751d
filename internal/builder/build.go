package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/config"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/nodeid"
	"github.com/vk/slotflow/internal/registry"
)

// Namespace seeds the stable IDs of declared nodes and compartments.
var Namespace = uuid.MustParse("6f1c1f0e-5b7a-4c2e-9d43-3a1e8f0b7c55")

// NodeID returns the stable ID of a declared node, so that cache entries
// outlive the process.
func NodeID(compartment, name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte("node:"+nodeid.Address{Compartment: compartment, Node: name}.String()))
}

// CompartmentID returns the stable ID of a declared compartment.
func CompartmentID(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte("compartment:"+name))
}

// Build constructs a graph from a pipeline declaration. Nodes and
// compartments get stable IDs derived from their names.
func Build(ctx context.Context, p *config.Pipeline, reg *registry.Registry) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	g := graph.New(reg)

	compartments, err := createCompartments(g, p.Compartments)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Compartment creation complete.", "compartment_count", len(compartments))

	if err := createNodes(g, reg, compartments, p.Nodes); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	if err := linkNodes(g, p.Connections); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.", "edge_count", len(g.Edges()))

	logger.Info("Build: Graph construction successful.", "nodes", g.Len(), "compartments", len(compartments))
	return g, nil
}

func createCompartments(g *graph.Graph, decls []*config.Compartment) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(decls))
	var errs []error
	for _, d := range decls {
		if _, dup := ids[d.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: compartment %q declared twice", d.Pos, d.Name))
			continue
		}
		c := graph.NewCompartment(d.Name)
		c.ID = CompartmentID(d.Name)
		if err := g.AddCompartment(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Pos, err))
			continue
		}
		ids[d.Name] = c.ID
	}
	return ids, errors.Join(errs...)
}

func createNodes(g *graph.Graph, reg *registry.Registry, compartments map[string]uuid.UUID, decls []*config.NodeDecl) error {
	type key struct{ compartment, name string }
	seen := make(map[key]struct{}, len(decls))

	var errs []error
	for _, d := range decls {
		k := key{d.Compartment, d.Name}
		if _, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("%s: node %q declared twice", d.Pos, nodeid.Address{Compartment: d.Compartment, Node: d.Name}))
			continue
		}
		seen[k] = struct{}{}

		compartmentID := uuid.Nil
		if d.Compartment != "" {
			id, ok := compartments[d.Compartment]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: node %q: unknown compartment %q", d.Pos, d.Name, d.Compartment))
				continue
			}
			compartmentID = id
		}

		n, err := reg.NewNode(d.Type, d.Name, d.Params)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Pos, err))
			continue
		}
		n.ID = NodeID(d.Compartment, d.Name)
		n.Enabled = !d.Disabled
		n.PassThrough = d.PassThrough
		if n.Iteration, err = iterationOptions(n.Iteration, d.Iteration); err != nil {
			errs = append(errs, fmt.Errorf("%s: node %q: %w", d.Pos, d.Name, err))
			continue
		}
		if err := g.InsertNode(n, compartmentID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Pos, err))
		}
	}
	return errors.Join(errs...)
}

// iterationOptions applies declared options over a node type's defaults.
// Unset fields keep the default.
func iterationOptions(base iteration.Options, it *config.Iteration) (iteration.Options, error) {
	if it == nil {
		return base, nil
	}
	opts := base
	var err error
	if it.Mode != "" {
		if opts.Mode, err = iteration.ParseMode(it.Mode); err != nil {
			return base, err
		}
	}
	if it.Strategy != "" {
		if opts.Strategy, err = iteration.ParseStrategy(it.Strategy); err != nil {
			return base, err
		}
	}
	if it.Columns != nil {
		opts.Columns = append([]string(nil), it.Columns...)
		if it.Strategy == "" {
			opts.Strategy = iteration.Custom
		}
	}
	if it.MergeMode != "" {
		if opts.MergeMode, err = datatable.ParseMergeMode(it.MergeMode); err != nil {
			return base, err
		}
	}
	if it.DataMergeMode != "" {
		if opts.DataMergeMode, err = datatable.ParseMergeMode(it.DataMergeMode); err != nil {
			return base, err
		}
	}
	opts.SkipAmbiguous = opts.SkipAmbiguous || it.SkipAmbiguous
	return opts, nil
}

func linkNodes(g *graph.Graph, conns []*config.Connection) error {
	var errs []error
	for _, c := range conns {
		from, err := ResolveSlot(g, c.From)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: connect from: %w", c.Pos, err))
			continue
		}
		to, err := ResolveSlot(g, c.To)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: connect to: %w", c.Pos, err))
			continue
		}
		if err := g.Connect(from, to); err != nil {
			errs = append(errs, fmt.Errorf("%s: connect %s -> %s: %w", c.Pos, c.From, c.To, err))
		}
	}
	return errors.Join(errs...)
}

// ResolveSlot resolves a slot address such as "ingest/numbers.out".
func ResolveSlot(g *graph.Graph, raw string) (graph.SlotRef, error) {
	addr, err := nodeid.ParseSlot(raw)
	if err != nil {
		return graph.SlotRef{}, err
	}
	n, err := g.Lookup(addr)
	if err != nil {
		return graph.SlotRef{}, err
	}
	return graph.SlotRef{Node: n.ID, Slot: addr.Slot}, nil
}

// ResolveTargets resolves node addresses such as "report" or
// "ingest/numbers" to node IDs.
func ResolveTargets(g *graph.Graph, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	var errs []error
	for _, r := range raw {
		addr, err := nodeid.Parse(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := g.Lookup(addr.NodeAddress())
		if err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", r, err))
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids, errors.Join(errs...)
}
