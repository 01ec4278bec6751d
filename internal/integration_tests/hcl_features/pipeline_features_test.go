package hcl_features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/builder"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/testutil"
)

// Test for: a custom iteration strategy groups rows by an annotation
// column before merging.
func TestHCL_IterationGroupsByColumn(t *testing.T) {
	src := `
node "table_source" "sales" {
  params {
    rows = [
      { item = 1, region = "north" },
      { item = 2, region = "north" },
      { item = 5, region = "south" },
    ]
  }
}

node "merge_rows" "per_region" {
  params {
    op = "sum"
  }
  iteration {
    strategy = "custom"
    columns  = ["region"]
  }
}

connect {
  from = sales.out
  to   = per_region.in
}
`
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": src})
	require.NoError(t, res.Err)

	out := testutil.Output(t, res, "per_region", "out")
	sums := map[string]string{}
	for _, r := range out.Rows() {
		region, ok := r.Text("region")
		require.True(t, ok)
		sums[region] = r.Item.AsBigFloat().Text('f', -1)
	}
	assert.Equal(t, map[string]string{"north": "3", "south": "5"}, sums)
}

// Test for: disabled and pass-through nodes forward their input unchanged.
func TestHCL_IdentityNodes(t *testing.T) {
	src := `
node "table_source" "words" {
  params {
    rows = [{ item = "a" }, { item = "b" }]
  }
}

node "annotate" "off" {
  disabled = true
  params {
    texts = { tag = "x" }
  }
}

node "annotate" "through" {
  pass_through = true
  params {
    texts = { tag = "y" }
  }
}

connect {
  from = words.out
  to   = off.in
}

connect {
  from = off.out
  to   = through.in
}
`
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": src})
	require.NoError(t, res.Err)

	out := testutil.Output(t, res, "through", "out")
	assert.Equal(t, []string{"a", "b"}, testutil.Items(out))
	for _, r := range out.Rows() {
		_, tagged := r.Text("tag")
		assert.False(t, tagged)
	}
	// Only the source computes; identity nodes bypass the cache.
	assert.Equal(t, 1, res.Result.CacheMisses)
}

// Test for: compartments address nodes by path and targets restrict the
// run to the target's ancestors.
func TestHCL_CompartmentsAndTargets(t *testing.T) {
	files := map[string]string{
		"ingest.hcl": `
compartment "ingest" {}

node "probe" "load" {
  compartment = "ingest"
}
`,
		"main.hcl": `
settings {
  targets = ["report"]
}

node "probe" "report" {}

node "probe" "unrelated" {}

connect {
  from = "ingest/load.out"
  to   = report.in
}
`,
	}
	probe := testutil.NewProbeModule()
	res := testutil.RunPipeline(t, files, probe)
	require.NoError(t, res.Err)

	assert.Equal(t, 1, probe.Calls("load"))
	assert.Equal(t, 1, probe.Calls("report"))
	assert.Zero(t, probe.Calls("unrelated"))
	assert.NotContains(t, res.Result.NodeStatus, testutil.NodeID("unrelated"))
	assert.Equal(t, node.StatusCompleted, res.Result.NodeStatus[builder.NodeID("ingest", "load")])
	assert.Equal(t, []string{"load"}, testutil.Items(testutil.Output(t, res, "report", "out")))
}
