package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

func TestClone(t *testing.T) {
	g, ns := diamond(t)
	cp := g.Clone()
	require.True(t, Equal(g, cp))

	require.True(t, cp.Disconnect(out(ns["a"]), in(ns["b"])))
	assert.False(t, Equal(g, cp))
	assert.True(t, g.HasEdge(out(ns["a"]), in(ns["b"])), "clone edits do not leak back")

	cp = g.Clone()
	n, _ := cp.Node(ns["a"].ID)
	n.Params = node.NewParams(map[string]cty.Value{"x": cty.NumberIntVal(1)})
	assert.False(t, Equal(g, cp))
}

func TestExtract(t *testing.T) {
	g, ns := diamond(t)
	sub, err := g.Extract(ns["a"].ID, ns["b"].ID, ns["d"].ID)
	require.NoError(t, err)

	assert.Equal(t, 3, sub.Len())
	assert.Equal(t, []Edge{
		{Source: out(ns["a"]), Target: in(ns["b"])},
	}, filterEdges(sub.Edges(), ns["a"].ID.String()))
	assert.Len(t, sub.Edges(), 2, "a->b and b->d")
}

func filterEdges(edges []Edge, source string) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.Source.Node.String() == source {
			out = append(out, e)
		}
	}
	return out
}

func TestMerge(t *testing.T) {
	g, ns := diamond(t)
	sub, err := g.Extract(ns["a"].ID, ns["b"].ID)
	require.NoError(t, err)

	res, err := g.Merge(sub)
	require.NoError(t, err)
	assert.Equal(t, 6, g.Len())
	require.Len(t, res.Edges, 1)

	newA := res.NodeIDs[ns["a"].ID]
	newB := res.NodeIDs[ns["b"].ID]
	assert.NotEqual(t, ns["a"].ID, newA)
	assert.True(t, g.HasEdge(SlotRef{Node: newA, Slot: "out"}, SlotRef{Node: newB, Slot: "in"}))
}

func TestMerge_RollsBackOnError(t *testing.T) {
	g := New(newTestRegistry())
	addNode(t, g, "a", "number")

	other := New(newTestRegistry())
	x := addNode(t, other, "x", "number")
	y := addNode(t, other, "y", "text")
	// Corrupt the source so that pasting its edge fails the kind check.
	other.addEdge(Edge{Source: out(x), Target: in(y)})

	before := g.Clone()
	_, err := g.Merge(other)
	require.ErrorIs(t, err, ErrStructural)
	assert.True(t, Equal(before, g))
}
