package dag_concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/testutil"
)

const fanOut = `
node "probe" "root" {}

node "probe" "left" {
  params {
    sleep = "100ms"
  }
}

node "probe" "right" {
  params {
    sleep = "100ms"
  }
}

node "probe" "join" {}

connect {
  from = root.out
  to   = left.in
}

connect {
  from = root.out
  to   = right.in
}

connect {
  from = left.out
  to   = join.in
}

connect {
  from = right.out
  to   = join.in
}
`

// Test for: independent branches run concurrently and the join waits for
// both.
func TestDAG_FanOutRunsConcurrently(t *testing.T) {
	probe := testutil.NewProbeModule()
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": fanOut}, probe)
	require.NoError(t, res.Err)

	left, right, join := probe.Records("left"), probe.Records("right"), probe.Records("join")
	require.Len(t, left, 1)
	require.Len(t, right, 1)
	// One step per forwarded row.
	require.Len(t, join, 2)

	assert.True(t, left[0].Start.Before(right[0].End) && right[0].Start.Before(left[0].End), "branches did not overlap")
	assert.False(t, join[0].Start.Before(left[0].End), "join started before left finished")
	assert.False(t, join[0].Start.Before(right[0].End), "join started before right finished")
	assert.ElementsMatch(t, []string{"root", "root"}, testutil.Items(testutil.Output(t, res, "join", "out")))
}

// Test for: a single worker serializes the branches.
func TestDAG_SingleWorkerSerializes(t *testing.T) {
	probe := testutil.NewProbeModule()
	settings := testutil.Settings()
	settings.Workers = 1
	res := testutil.RunPipelineWithSettings(t.Context(), t, settings, map[string]string{"main.hcl": fanOut}, probe)
	require.NoError(t, res.Err)

	left, right := probe.Records("left")[0], probe.Records("right")[0]
	overlap := left.Start.Before(right.End) && right.Start.Before(left.End)
	assert.False(t, overlap, "branches overlapped with one worker")
}
