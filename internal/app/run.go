package app

import (
	"context"
	"fmt"

	"github.com/vk/slotflow/internal/builder"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/executor"
)

// Run executes the loaded graph once. The result is returned together with
// the run error whenever the run got as far as validation.
func (a *App) Run(ctx context.Context) (*executor.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()

	targets, err := builder.ResolveTargets(a.graph, a.settings.Targets)
	if err != nil {
		return nil, fmt.Errorf("invalid targets: %w", err)
	}

	a.logger.Info("Node types registered:", "count", len(a.registry.NodeTypes()), "types", a.registry.NodeTypes())
	if len(a.graph.Nodes()) == 0 {
		a.logger.Warn("No nodes found in graph, execution not required.")
		return nil, nil
	}

	exec := executor.New(a.graph, a.registry, a.cache,
		executor.WithWorkers(a.settings.Workers),
		executor.WithTargets(targets...),
		executor.WithSkipOnFailure(a.settings.SkipOnFailure),
		executor.WithIgnoreWarnings(!a.settings.FailOnWarnings),
		executor.WithMetrics(a.metrics),
		executor.WithSink(a.sink),
		executor.WithRunStore(a.runs),
	)

	a.logger.Info("🚀 Starting concurrent execution...")
	res, err := exec.Run(ctx)
	if res != nil {
		a.logger.Info("🏁 Execution finished.",
			"runID", res.RunID,
			"status", res.Status,
			"duration", res.Duration(),
			"cacheHits", res.CacheHits,
			"cacheMisses", res.CacheMisses,
			"warnings", len(res.Warnings),
		)
	}
	if err != nil {
		return res, fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return res, nil
}
