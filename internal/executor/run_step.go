package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/node"
)

// runNode produces a node's outputs: by identity for pass-through and
// disabled nodes, otherwise from the cache or by running the algorithm.
func (r *run) runNode(ctx context.Context, t task) outcome {
	n := t.node
	if n.IsIdentity() {
		return outcome{node: n, status: node.StatusCompleted, outputs: identityOutputs(n, t.inputs)}
	}
	if n.Algorithm == nil {
		return r.failure(n, -1, fmt.Errorf("node type %q has no algorithm", n.Type))
	}

	var warnings []Warning
	outputs, hit, err := r.cache.GetOrCompute(ctx, n.ID, t.state, func(ctx context.Context) (cache.Outputs, error) {
		var out cache.Outputs
		var err error
		out, warnings, err = r.compute(ctx, n, t.inputs)
		return out, err
	})
	if err != nil {
		var nodeErr *NodeExecutionError
		if errors.As(err, &nodeErr) {
			return outcome{node: n, status: node.StatusFailed, err: nodeErr, warnings: warnings}
		}
		return r.failure(n, -1, err)
	}
	status := node.StatusCompleted
	if hit {
		status = node.StatusCached
	}
	return outcome{node: n, status: status, outputs: outputs, warnings: warnings}
}

func (r *run) failure(n *node.Node, step int, err error) outcome {
	return outcome{
		node:   n,
		status: node.StatusFailed,
		err:    &NodeExecutionError{NodeID: n.ID, NodeName: n.Name, Step: step, Err: err},
	}
}

// compute runs the algorithm once per iteration step into fresh output
// tables, sealing them at the end.
func (r *run) compute(ctx context.Context, n *node.Node, inputs map[string]*datatable.Table) (cache.Outputs, []Warning, error) {
	logger := ctxlog.FromContext(ctx)
	fail := func(step int, err error) error {
		return &NodeExecutionError{NodeID: n.ID, NodeName: n.Name, Step: step, Err: err}
	}

	res, err := iteration.NewGenerator(n.Iteration).Generate(inputs)
	if err != nil {
		return nil, nil, fail(-1, err)
	}
	var warnings []Warning
	for _, w := range res.Warnings {
		logger.Warn("Unmatched input rows.", "slot", w.Slot, "rows", w.Rows, "reason", w.Reason)
		warnings = append(warnings, Warning{NodeID: n.ID, Node: n.Name, Message: w.String()})
	}

	outputs := make(map[string]*datatable.Table, len(n.Outputs))
	for _, slot := range n.Outputs {
		outputs[slot.Name] = datatable.NewTable(slot.Kind)
	}

	logger.Debug("Running node algorithm.", "steps", len(res.Steps))
	for _, step := range res.Steps {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}
		if err := n.Algorithm.Run(ctx, node.NewRunIO(n, step, inputs, outputs)); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil, warnings, err
			}
			return nil, warnings, fail(step.Index, err)
		}
	}

	sealed := make(cache.Outputs, len(outputs))
	for name, tbl := range outputs {
		sealed[name] = tbl.Seal()
	}
	return sealed, warnings, nil
}

// identityOutputs forwards each input to the same-named output. A node with
// a single input and a single output forwards regardless of names; outputs
// without a source are empty.
func identityOutputs(n *node.Node, inputs map[string]*datatable.Table) cache.Outputs {
	out := make(cache.Outputs, len(n.Outputs))
	for _, slot := range n.Outputs {
		tbl, ok := inputs[slot.Name]
		if !ok && len(n.Inputs) == 1 && len(n.Outputs) == 1 {
			tbl, ok = inputs[n.Inputs[0].Name]
		}
		if !ok || tbl == nil {
			tbl = datatable.Empty(slot.Kind)
		}
		out[slot.Name] = tbl.Seal()
	}
	return out
}
