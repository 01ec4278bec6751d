package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/metrics"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Changing only B's parameter must reuse A's cached output and recompute B.
func TestRun_ReusesUpstreamCache(t *testing.T) {
	f := newFixture(t)
	a := f.source(t, "a", 1, 2, 3)
	b := f.add(t, "scale", "b", map[string]cty.Value{"factor": cty.NumberIntVal(2)})
	f.connect(t, "a", "out", "b", "in")

	m := metrics.New()
	c := cache.New(cache.NewMemoryBackend(), cache.WithObserver(m))
	ex := New(f.g, f.reg, c, WithMetrics(m))
	ctx := context.Background()

	res, err := ex.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, 2, res.CacheMisses)
	out, ok := res.Output(b.ID, "out")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 4, 6}, numbers(t, out))
	assert.Equal(t, node.StatusCompleted, res.NodeStatus[a.ID])

	res, err = ex.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CacheHits)
	assert.Equal(t, 0, res.CacheMisses)
	assert.Equal(t, node.StatusCached, res.NodeStatus[b.ID])
	assert.Equal(t, int64(1), f.calls.get("a"))

	require.NoError(t, f.g.SetParams(b.ID, node.NewParams(map[string]cty.Value{"factor": cty.NumberIntVal(3)})))
	res, err = ex.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.StatusCached, res.NodeStatus[a.ID])
	assert.Equal(t, node.StatusCompleted, res.NodeStatus[b.ID])
	assert.Equal(t, int64(1), f.calls.get("a"), "a is served from the cache")
	out, _ = res.Output(b.ID, "out")
	assert.Equal(t, []int64{3, 6, 9}, numbers(t, out))
	assert.Equal(t, 1, res.CacheHits)
	assert.Equal(t, 1, res.CacheMisses)
}

// The same graph yields the same cache states on every run.
func TestRun_CacheStateIsDeterministic(t *testing.T) {
	f := newFixture(t)
	a := f.source(t, "a", 1)
	b := f.add(t, "scale", "b", nil)
	f.connect(t, "a", "out", "b", "in")

	first, err := New(f.g, f.reg, nil).Run(context.Background())
	require.NoError(t, err)
	second, err := New(f.g, f.reg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.States, second.States)
	assert.NotEqual(t, first.States[a.ID], first.States[b.ID])
}

func TestRun_ValidationBlocksRun(t *testing.T) {
	f := newFixture(t)
	f.add(t, "scale", "lonely", nil)

	res, err := New(f.g, f.reg, nil).Run(context.Background())
	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 1)
	assert.Equal(t, Failed, res.Status)
	assert.Zero(t, f.calls.get("lonely"))
}

func TestRun_WarningsBlockUnlessIgnored(t *testing.T) {
	f := newFixture(t)
	f.source(t, "a", 1)
	b := f.add(t, "scale", "b", nil)
	f.connect(t, "a", "out", "b", "in")
	require.NoError(t, f.g.SetEnabled(b.ID, false))

	_, err := New(f.g, f.reg, nil).Run(context.Background())
	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)

	res, err := New(f.g, f.reg, nil, WithIgnoreWarnings(true)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "disabled")
}

func TestRun_IdentityNodes(t *testing.T) {
	f := newFixture(t)
	f.source(t, "a", 1, 2)
	f.source(t, "b", 3)
	p := f.add(t, registry.PassThroughType, "p", nil)
	s := f.add(t, "scale", "s", map[string]cty.Value{"factor": cty.NumberIntVal(10)})
	f.connect(t, "a", "out", "p", "data")
	f.connect(t, "b", "out", "p", "data")
	f.connect(t, "p", "data", "s", "in")

	ex := New(f.g, f.reg, nil, WithIgnoreWarnings(true))
	res, err := ex.Run(context.Background())
	require.NoError(t, err)

	fanIn, _ := res.Output(p.ID, "data")
	assert.ElementsMatch(t, []int64{1, 2, 3}, numbers(t, fanIn), "fan-in is concatenated")
	assert.Equal(t, 3, res.CacheMisses, "identity nodes bypass the cache")

	require.NoError(t, f.g.SetEnabled(s.ID, false))
	res, err = ex.Run(context.Background())
	require.NoError(t, err)
	out, _ := res.Output(s.ID, "out")
	assert.ElementsMatch(t, []int64{1, 2, 3}, numbers(t, out), "disabled nodes forward their input")
	assert.Equal(t, int64(1), f.calls.get("s"))
	assert.Equal(t, 2, res.CacheHits)
}

func TestRun_HaltsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.source(t, "a", 1, 2)
	bad := f.add(t, "fail", "bad", nil)
	after := f.add(t, "scale", "after", nil)
	f.connect(t, "a", "out", "bad", "in")
	f.connect(t, "bad", "out", "after", "in")

	res, err := New(f.g, f.reg, nil).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, bad.ID, res.Failures[0].NodeID)

	var nodeErr *NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "bad", nodeErr.NodeName)
	assert.Equal(t, 0, nodeErr.Step)
	assert.Equal(t, node.StatusCancelled, res.NodeStatus[after.ID])
	assert.Zero(t, f.calls.get("after"))
}

func TestRun_SkipOnFailure(t *testing.T) {
	f := newFixture(t)
	f.source(t, "a", 1)
	f.add(t, "fail", "bad", nil)
	after := f.add(t, "scale", "after", nil)
	last := f.add(t, "scale", "last", nil)
	other := f.add(t, "scale", "other", nil)
	f.connect(t, "a", "out", "bad", "in")
	f.connect(t, "bad", "out", "after", "in")
	f.connect(t, "after", "out", "last", "in")
	f.connect(t, "a", "out", "other", "in")

	res, err := New(f.g, f.reg, nil, WithSkipOnFailure(true), WithWorkers(1)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Len(t, res.Failures, 1)
	assert.Equal(t, node.StatusSkipped, res.NodeStatus[after.ID])
	assert.Equal(t, node.StatusSkipped, res.NodeStatus[last.ID])
	assert.Equal(t, node.StatusCompleted, res.NodeStatus[other.ID])

	var skipped []string
	for _, w := range res.Warnings {
		skipped = append(skipped, w.Node+": "+w.Message)
	}
	assert.Contains(t, skipped, "after: skipped: downstream of failed node bad")
	assert.Contains(t, skipped, "last: skipped: downstream of failed node bad")
}

func TestRun_AmbiguousMatchFailsOnlyItsBranch(t *testing.T) {
	f := newFixture(t)
	f.source(t, "x", 1)
	f.source(t, "y", 2)
	f.source(t, "z", 3)
	join := f.add(t, "join", "join", nil)
	after := f.add(t, "scale", "after", nil)
	other := f.add(t, "scale", "other", nil)
	f.connect(t, "x", "out", "join", "left")
	f.connect(t, "y", "out", "join", "left")
	f.connect(t, "z", "out", "join", "right")
	f.connect(t, "join", "out", "after", "in")
	f.connect(t, "z", "out", "other", "in")

	res, err := New(f.g, f.reg, nil, WithWorkers(1)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, join.ID, res.Failures[0].NodeID)

	var ambiguous *iteration.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "left", ambiguous.Slot)
	assert.Equal(t, "id=0", ambiguous.Key)

	assert.Equal(t, node.StatusFailed, res.NodeStatus[join.ID])
	assert.Equal(t, node.StatusSkipped, res.NodeStatus[after.ID])
	assert.Equal(t, node.StatusCompleted, res.NodeStatus[other.ID])
	assert.Equal(t, []int64{3}, numbers(t, res.Outputs[other.ID]["out"]))
	assert.Zero(t, f.calls.get("join"))
}

func TestRun_Targets(t *testing.T) {
	f := newFixture(t)
	f.source(t, "a", 1)
	b := f.add(t, "scale", "b", nil)
	c := f.source(t, "c", 5)
	f.connect(t, "a", "out", "b", "in")

	res, err := New(f.g, f.reg, nil, WithTargets(b.ID)).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.NodeStatus, 2)
	assert.NotContains(t, res.NodeStatus, c.ID)

	_, err = New(f.g, f.reg, nil, WithTargets(uuid.New())).Run(context.Background())
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	a := f.source(t, "a", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(f.g, f.reg, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, res.Status)
	assert.Equal(t, node.StatusCancelled, res.NodeStatus[a.ID])
	assert.Zero(t, f.calls.get("a"))
}

func TestRun_CancelKeepsStoredEntries(t *testing.T) {
	f := newFixture(t)
	a := f.source(t, "a", 1)
	f.add(t, "scale", "b", nil)
	f.connect(t, "a", "out", "b", "in")

	ctx, cancel := context.WithCancel(context.Background())
	c := cache.New(cache.NewMemoryBackend())
	ex := New(f.g, f.reg, c, WithSink(cancelAfter{node: "a", cancel: cancel}))

	res, err := ex.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, res.Status)

	entries, err := c.Extract(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a's result stays cached")
}

func TestRun_BoundedWorkers(t *testing.T) {
	reg := registry.New()
	g := graph.New(reg)
	var running, peak atomic.Int64
	for i := 0; i < 8; i++ {
		n := node.New("n", "busy")
		n.Outputs = []node.Slot{node.OutputSlot("out", registry.AnyKind)}
		n.Params = node.NewParams(map[string]cty.Value{"i": cty.NumberIntVal(int64(i))})
		n.Algorithm = node.Func(func(context.Context, *node.RunIO) error {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
		require.NoError(t, g.InsertNode(n, uuid.Nil))
	}

	res, err := New(g, reg, nil, WithWorkers(2)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, res.CacheMisses)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestStateMachine(t *testing.T) {
	var m stateMachine
	require.NoError(t, m.transition(Validating))
	require.NoError(t, m.transition(Running))
	require.NoError(t, m.transition(Completed))
	assert.True(t, m.state.Terminal())

	err := m.transition(Running)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, Completed, m.state)
}
