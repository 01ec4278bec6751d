// Package executor runs a graph: it validates it, plans the nodes to run,
// and executes them on a bounded worker pool, reusing cached outputs
// wherever a node's cache state is unchanged.
package executor

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/inmemorystore"
	"github.com/vk/slotflow/internal/metrics"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/nodestore"
	"github.com/vk/slotflow/internal/notify"
	"github.com/vk/slotflow/internal/registry"
	"github.com/vk/slotflow/internal/runstore"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// Options tune a run.
type Options struct {
	// Workers bounds the number of nodes executing at once.
	Workers int
	// Targets restricts the run to these nodes and their ancestors.
	Targets []uuid.UUID
	// SkipOnFailure keeps independent branches running after a failure.
	// Dependents of a failed node are skipped.
	SkipOnFailure bool
	// IgnoreWarnings lets a run start despite validation warnings.
	IgnoreWarnings bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.opts.Workers = n }
}

// WithTargets restricts runs to the given nodes and their ancestors.
func WithTargets(ids ...uuid.UUID) Option {
	return func(e *Executor) { e.opts.Targets = append([]uuid.UUID(nil), ids...) }
}

// WithSkipOnFailure enables continuing past failed branches.
func WithSkipOnFailure(skip bool) Option {
	return func(e *Executor) { e.opts.SkipOnFailure = skip }
}

// WithIgnoreWarnings lets runs start despite validation warnings.
func WithIgnoreWarnings(ignore bool) Option {
	return func(e *Executor) { e.opts.IgnoreWarnings = ignore }
}

// WithMetrics reports node and run outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithSink publishes run events to s.
func WithSink(s notify.Sink) Option {
	return func(e *Executor) { e.sink = s }
}

// WithNodeStore sets the factory creating the per-run node state store.
func WithNodeStore(newStore func() nodestore.Store) Option {
	return func(e *Executor) { e.newStore = newStore }
}

// WithRunStore persists a report of every finished run to s.
func WithRunStore(s runstore.Store) Option {
	return func(e *Executor) { e.runs = s }
}

// Executor runs a graph. The graph must not be edited while a run is in
// progress.
type Executor struct {
	graph    *graph.Graph
	registry *registry.Registry
	cache    *cache.Cache
	opts     Options
	metrics  *metrics.Metrics
	sink     notify.Sink
	newStore func() nodestore.Store
	runs     runstore.Store
}

// New creates an executor for g. A nil cache gets a private in-memory one.
func New(g *graph.Graph, reg *registry.Registry, c *cache.Cache, opts ...Option) *Executor {
	if c == nil {
		c = cache.New(cache.NewMemoryBackend())
	}
	e := &Executor{
		graph:    g,
		registry: reg,
		cache:    c,
		opts:     Options{Workers: DefaultWorkers},
		sink:     notify.Discard{},
		newStore: inmemorystore.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.opts.Workers <= 0 {
		e.opts.Workers = DefaultWorkers
	}
	return e
}

// Options returns the effective run options.
func (e *Executor) Options() Options { return e.opts }

// Result is the outcome of a run. It is returned even when the run fails.
type Result struct {
	RunID      uuid.UUID
	Status     RunState
	NodeStatus map[uuid.UUID]node.Status
	// Outputs holds the output tables of every node that produced them.
	Outputs map[uuid.UUID]cache.Outputs
	// States holds the cache state computed for every dispatched node.
	States      map[uuid.UUID]cache.State
	Failures    []NodeFailure
	Warnings    []Warning
	CacheHits   int
	CacheMisses int
	Started     time.Time
	Finished    time.Time
}

// Err joins the errors of all failed nodes, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Output returns one output table of a node.
func (r *Result) Output(id uuid.UUID, slot string) (*datatable.Table, bool) {
	tbl, ok := r.Outputs[id][slot]
	return tbl, ok
}

// Report converts the result into a persistable run report. Node names and
// types are looked up in g.
func (r *Result) Report(g *graph.Graph, runErr error) *runstore.Report {
	rep := &runstore.Report{
		RunID:       r.RunID,
		Status:      r.Status.String(),
		Started:     r.Started,
		Finished:    r.Finished,
		CacheHits:   r.CacheHits,
		CacheMisses: r.CacheMisses,
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	for _, w := range r.Warnings {
		rep.Warnings = append(rep.Warnings, w.String())
	}
	failures := make(map[uuid.UUID]error, len(r.Failures))
	for _, f := range r.Failures {
		failures[f.NodeID] = f.Err
	}
	for id, status := range r.NodeStatus {
		nr := runstore.NodeReport{NodeID: id, Status: status.String(), State: string(r.States[id])}
		if n, ok := g.Node(id); ok {
			nr.Name, nr.Type = n.Name, n.Type
		}
		if err := failures[id]; err != nil {
			nr.Error = err.Error()
		}
		rep.Nodes = append(rep.Nodes, nr)
	}
	sort.Slice(rep.Nodes, func(i, j int) bool { return rep.Nodes[i].Name < rep.Nodes[j].Name })
	return rep
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Run executes the graph once. The returned error is a *graph.ValidationError
// when validation blocked the run, the context error when the run was
// cancelled, or the joined node failures.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	r := newRun(e)
	return r.execute(ctx)
}
