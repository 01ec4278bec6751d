package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/builder"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
)

// NodeID returns the ID of a node declared in the root compartment.
func NodeID(name string) uuid.UUID { return builder.NodeID("", name) }

// AssertNodeStatus checks the final status of a node declared in the root
// compartment.
func AssertNodeStatus(t *testing.T, res *HarnessResult, name string, want node.Status) {
	t.Helper()
	require.NotNil(t, res.Result, "run did not start: %v", res.Err)
	got, ok := res.Result.NodeStatus[NodeID(name)]
	require.True(t, ok, "node %q was not part of the run", name)
	require.Equal(t, want, got, "status of node %q", name)
}

// Output returns an output table of a node declared in the root
// compartment.
func Output(t *testing.T, res *HarnessResult, name, slot string) *datatable.Table {
	t.Helper()
	require.NotNil(t, res.Result, "run did not start: %v", res.Err)
	tbl, ok := res.Result.Output(NodeID(name), slot)
	require.True(t, ok, "node %q has no output %q", name, slot)
	return tbl
}
