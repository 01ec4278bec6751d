package executor

import (
	"context"
	"errors"
	"time"

	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/notify"
)

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, readyChan <-chan task, doneChan chan<- outcome, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for t := range readyChan {
		n := t.node
		workerLogger := logger.With("workerID", workerID, "nodeID", n.ID, "node", n.Name)

		if ctx.Err() != nil {
			workerLogger.Debug("Context canceled, skipping node execution.")
			doneChan <- outcome{node: n, status: node.StatusCancelled, err: ctx.Err()}
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.", "state", t.state)
		_ = r.store.SetStatus(ctx, n.ID, node.StatusRunning)
		r.publish(ctx, notify.NodeStarted, n, node.StatusRunning.String(), nil)
		r.metrics.WorkerBusy(1)
		start := time.Now()

		out := r.runNode(ctxlog.WithLogger(ctx, workerLogger), t)
		out.elapsed = time.Since(start)
		r.metrics.WorkerBusy(-1)

		if out.err != nil && ctx.Err() != nil && errors.Is(out.err, ctx.Err()) {
			out.status = node.StatusCancelled
		}
		doneChan <- out
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
