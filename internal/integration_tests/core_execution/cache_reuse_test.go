package core_execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const chain = `
node "probe" "a" {}

node "probe" "b" {}

node "probe" "c" {}

connect {
  from = a.out
  to   = b.in
}

connect {
  from = b.out
  to   = c.in
}
`

// Test for: an unchanged graph is served entirely from the cache.
func TestCoreExecution_RerunHitsCache(t *testing.T) {
	probe := testutil.NewProbeModule()
	first := testutil.RunPipeline(t, map[string]string{"main.hcl": chain}, probe)
	require.NoError(t, first.Err)
	assert.Equal(t, 3, first.Result.CacheMisses)

	second := testutil.Rerun(context.Background(), t, first)
	require.NoError(t, second.Err)
	assert.Equal(t, 3, second.Result.CacheHits)
	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, 1, probe.Calls(name), name)
		testutil.AssertNodeStatus(t, second, name, node.StatusCached)
	}
	assert.Equal(t, []string{"a"}, testutil.Items(testutil.Output(t, second, "c", "out")))
}

// Test for: changing a node's params recomputes it and everything
// downstream, but not its ancestors.
func TestCoreExecution_ParamChangeInvalidatesDownstream(t *testing.T) {
	probe := testutil.NewProbeModule()
	first := testutil.RunPipeline(t, map[string]string{"main.hcl": chain}, probe)
	require.NoError(t, first.Err)

	g := first.App.Graph()
	b, ok := g.Node(testutil.NodeID("b"))
	require.True(t, ok)
	require.NoError(t, g.SetParams(b.ID, b.Params.With("sleep", cty.StringVal("1ms"))))

	second := testutil.Rerun(context.Background(), t, first)
	require.NoError(t, second.Err)
	testutil.AssertNodeStatus(t, second, "a", node.StatusCached)
	testutil.AssertNodeStatus(t, second, "b", node.StatusCompleted)
	testutil.AssertNodeStatus(t, second, "c", node.StatusCompleted)
	assert.Equal(t, 1, probe.Calls("a"))
	assert.Equal(t, 2, probe.Calls("c"))
}
