package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/nodestore"
	"github.com/vk/slotflow/internal/notify"
	"github.com/vk/slotflow/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// task is a node ready for a worker, with everything it needs resolved by
// the dispatcher.
type task struct {
	node   *node.Node
	state  cache.State
	inputs map[string]*datatable.Table
}

// outcome is what a worker reports back for a task.
type outcome struct {
	node     *node.Node
	status   node.Status
	outputs  cache.Outputs
	err      error
	warnings []Warning
	elapsed  time.Duration
}

// run holds the state of one execution. Everything but the worker pool is
// owned by the dispatching goroutine.
type run struct {
	*Executor
	id      uuid.UUID
	machine stateMachine
	store   nodestore.Store
	plan    *scheduler.Plan
	result  *Result
	halted  bool
	// failed marks nodes that failed or were skipped, for skip propagation.
	failed map[uuid.UUID]uuid.UUID
}

func newRun(e *Executor) *run {
	id := uuid.New()
	return &run{
		Executor: e,
		id:       id,
		store:    e.newStore(),
		failed:   make(map[uuid.UUID]uuid.UUID),
		result: &Result{
			RunID:      id,
			NodeStatus: make(map[uuid.UUID]node.Status),
			Outputs:    make(map[uuid.UUID]cache.Outputs),
			States:     make(map[uuid.UUID]cache.State),
		},
	}
}

func (r *run) publish(ctx context.Context, t notify.EventType, n *node.Node, status string, err error) {
	ev := notify.Event{Type: t, RunID: r.id, Status: status, Time: time.Now()}
	if n != nil {
		ev.NodeID, ev.Node = n.ID, n.Name
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.sink.Publish(ctx, ev)
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("runID", r.id)
	ctx = ctxlog.WithLogger(ctx, logger)
	r.result.Started = time.Now()
	r.publish(ctx, notify.RunStarted, nil, Pending.String(), nil)

	err := r.validate(ctx)
	if err == nil {
		err = r.dispatch(ctx)
	}

	r.result.Finished = time.Now()
	if statuses, serr := r.store.Statuses(ctx); serr == nil {
		for id, s := range statuses {
			r.result.NodeStatus[id] = s
		}
	}
	r.result.Status = r.machine.state
	r.metrics.RunFinished(r.machine.state.String())
	r.publish(ctx, notify.RunFinished, nil, r.machine.state.String(), err)
	if r.runs != nil {
		if serr := r.runs.Save(ctx, r.result.Report(r.graph, err)); serr != nil {
			logger.Warn("Failed to persist run report.", "error", serr)
		}
	}
	logger.Info("Run finished.", "status", r.machine.state, "duration", r.result.Duration(), "failures", len(r.result.Failures), "cacheHits", r.result.CacheHits, "cacheMisses", r.result.CacheMisses)
	return r.result, err
}

// validate checks the graph and plans the run.
func (r *run) validate(ctx context.Context) error {
	if err := r.machine.transition(Validating); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)

	if r.registry != nil {
		if err := r.registry.Validate(ctx); err != nil {
			return r.fail(err)
		}
	}
	issues := r.graph.Validate(ctx)
	for _, issue := range issues {
		if issue.NodeID == uuid.Nil && issue.Severity == node.SeverityError {
			return r.fail(&graph.ValidationError{Issues: graph.Errors(issues)})
		}
	}

	plan, err := scheduler.NewPlan(ctx, r.graph, r.opts.Targets...)
	if err != nil {
		return r.fail(err)
	}
	r.plan = plan

	var blocking []node.ValidationIssue
	for _, issue := range issues {
		if !plan.Contains(issue.NodeID) {
			continue
		}
		if issue.Severity == node.SeverityWarning {
			logger.Warn("Validation warning.", "issue", issue.String())
			r.result.Warnings = append(r.result.Warnings, Warning{NodeID: issue.NodeID, Node: issue.Node, Message: issue.Message})
			if r.opts.IgnoreWarnings {
				continue
			}
		}
		blocking = append(blocking, issue)
	}
	if len(blocking) > 0 {
		return r.fail(&graph.ValidationError{Issues: blocking})
	}
	return nil
}

func (r *run) fail(err error) error {
	if terr := r.machine.transition(Failed); terr != nil {
		return errors.Join(err, terr)
	}
	return err
}

// dispatch drives the worker pool until every planned node is done.
func (r *run) dispatch(ctx context.Context) error {
	if err := r.machine.transition(Running); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)

	for _, n := range r.plan.Order {
		_ = r.store.SetStatus(ctx, n.ID, node.StatusPending)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(r.plan)
	readyChan := make(chan task, len(r.plan.Order))
	doneChan := make(chan outcome, len(r.plan.Order))

	eg, egCtx := errgroup.WithContext(runCtx)
	logger.Debug("Starting worker pool.", "workers", r.opts.Workers, "nodes", len(r.plan.Order))
	for i := 0; i < r.opts.Workers; i++ {
		workerID := i
		eg.Go(func() error {
			r.worker(egCtx, readyChan, doneChan, workerID)
			return nil
		})
	}

	pending := sched.Ready()
	inflight := 0
	for {
		for len(pending) > 0 {
			n := pending[0]
			pending = pending[1:]
			if out, preempted := r.preempt(ctx, n); preempted {
				r.record(ctx, out)
				pending = append(pending, sched.Done(n.ID)...)
				continue
			}
			readyChan <- r.prepare(n)
			inflight++
		}
		if inflight == 0 {
			break
		}
		out := <-doneChan
		inflight--
		r.record(ctx, out)
		if out.status == node.StatusFailed && !r.opts.SkipOnFailure && !r.halted && !contained(out.err) {
			logger.Warn("Halting run after node failure.", "nodeID", out.node.ID)
			r.halted = true
			cancel()
		}
		pending = append(pending, sched.Done(out.node.ID)...)
	}
	close(readyChan)
	_ = eg.Wait()

	if sched.Pending() > 0 {
		return r.fail(fmt.Errorf("scheduler stalled with %d nodes pending", sched.Pending()))
	}

	switch {
	case ctx.Err() != nil:
		if err := r.machine.transition(Cancelled); err != nil {
			return err
		}
		return ctx.Err()
	case len(r.result.Failures) > 0:
		return r.fail(r.result.Err())
	default:
		return r.machine.transition(Completed)
	}
}

// contained reports failures that affect only the failed node's branch,
// whatever the failure policy.
func contained(err error) bool {
	var ambiguous *iteration.AmbiguousMatchError
	return errors.As(err, &ambiguous)
}

// preempt decides nodes that must not run: everything after a cancellation
// or a halting failure, and dependents of failed nodes when skipping.
func (r *run) preempt(ctx context.Context, n *node.Node) (outcome, bool) {
	if ctx.Err() != nil || r.halted {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		return outcome{node: n, status: node.StatusCancelled, err: err}, true
	}
	for _, pred := range r.plan.Predecessors(n.ID) {
		if _, bad := r.failed[pred]; bad {
			cause := r.failed[pred]
			msg := fmt.Sprintf("skipped: downstream of failed node %s", r.nodeName(cause))
			return outcome{
				node:     n,
				status:   node.StatusSkipped,
				err:      errors.New(msg),
				warnings: []Warning{{NodeID: n.ID, Node: n.Name, Message: msg}},
			}, true
		}
	}
	return outcome{}, false
}

func (r *run) nodeName(id uuid.UUID) string {
	if n, ok := r.graph.Node(id); ok {
		return n.Name
	}
	return id.String()
}

// prepare resolves a node's inputs and cache state. All predecessors are
// done, so their outputs and states are final.
func (r *run) prepare(n *node.Node) task {
	inputs := make(map[string]*datatable.Table, len(n.Inputs))
	for _, slot := range n.Inputs {
		sources := r.graph.IncomingSourceSlots(graph.SlotRef{Node: n.ID, Slot: slot.Name})
		if len(sources) == 0 && slot.Optional {
			// Unconnected optional inputs take no part in iteration.
			continue
		}
		var tables []*datatable.Table
		for _, src := range sources {
			if tbl, ok := r.result.Outputs[src.Node][src.Slot]; ok && tbl != nil {
				tables = append(tables, tbl)
			}
		}
		switch len(tables) {
		case 0:
			inputs[slot.Name] = datatable.Empty(slot.Kind)
		case 1:
			inputs[slot.Name] = tables[0]
		default:
			inputs[slot.Name] = datatable.Concat(slot.Kind, tables...)
		}
	}
	state := r.cacheState(n)
	r.result.States[n.ID] = state
	return task{node: n, state: state, inputs: inputs}
}

// record applies a finished node's outcome to the run.
func (r *run) record(ctx context.Context, out outcome) {
	logger := ctxlog.FromContext(ctx).With("nodeID", out.node.ID, "node", out.node.Name)
	n := out.node
	_ = r.store.SetStatus(ctx, n.ID, out.status)

	switch out.status {
	case node.StatusCompleted, node.StatusCached:
		_ = r.store.SetOutput(ctx, n.ID, out.outputs)
		r.result.Outputs[n.ID] = out.outputs
		if out.status == node.StatusCached {
			r.result.CacheHits++
		} else if !n.IsIdentity() {
			r.result.CacheMisses++
		}
		logger.Debug("Node finished.", "status", out.status, "duration", out.elapsed)
	case node.StatusFailed:
		_ = r.store.SetError(ctx, n.ID, out.err)
		r.failed[n.ID] = n.ID
		r.result.Failures = append(r.result.Failures, NodeFailure{NodeID: n.ID, Node: n.Name, Err: out.err})
		logger.Error("Node execution failed.", "error", out.err)
	case node.StatusSkipped:
		_ = r.store.SetError(ctx, n.ID, out.err)
		cause := n.ID
		for _, pred := range r.plan.Predecessors(n.ID) {
			if c, ok := r.failed[pred]; ok {
				cause = c
				break
			}
		}
		r.failed[n.ID] = cause
		logger.Warn("Skipping node due to upstream failure.", "reason", out.err)
	case node.StatusCancelled:
		_ = r.store.SetError(ctx, n.ID, out.err)
		logger.Debug("Node cancelled.")
	}

	r.result.Warnings = append(r.result.Warnings, out.warnings...)
	if out.status != node.StatusCancelled || out.elapsed > 0 {
		r.metrics.NodeFinished(n.Type, out.status.String(), out.elapsed)
	}
	r.publish(ctx, notify.NodeFinished, n, out.status.String(), out.err)
}
