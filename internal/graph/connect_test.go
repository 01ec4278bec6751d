package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/node"
)

func TestConnect_Rejections(t *testing.T) {
	g := New(newTestRegistry())
	a := addNode(t, g, "a", "number")
	b := addNode(t, g, "b", "number")
	c := addNode(t, g, "c", "integer")
	txt := addNode(t, g, "txt", "text")
	connect(t, g, a, b)

	tests := []struct {
		name    string
		source  SlotRef
		target  SlotRef
		wantErr any
	}{
		{name: "self loop", source: out(a), target: in(a), wantErr: new(*CycleError)},
		{name: "closing a cycle", source: out(b), target: in(a), wantErr: new(*CycleError)},
		{name: "kind mismatch", source: out(a), target: in(txt), wantErr: new(*TypeMismatchError)},
		{name: "narrowing kind", source: out(a), target: in(c), wantErr: new(*TypeMismatchError)},
		{name: "single input already fed", source: out(c), target: in(b), wantErr: new(*SlotCapacityError)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := g.Clone()
			err := g.Connect(tc.source, tc.target)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructural)
			assert.ErrorAs(t, err, tc.wantErr)
			assert.True(t, Equal(before, g), "graph must be unchanged after a rejected edit")
		})
	}

	t.Run("unknown slot", func(t *testing.T) {
		err := g.Connect(SlotRef{Node: a.ID, Slot: "missing"}, in(b))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConnect_CyclePath(t *testing.T) {
	g := New(newTestRegistry())
	a := addNode(t, g, "a", "number")
	b := addNode(t, g, "b", "number")
	c := addNode(t, g, "c", "number")
	connect(t, g, a, b)
	connect(t, g, b, c)

	var cycle *CycleError
	require.ErrorAs(t, g.Connect(out(c), in(a)), &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
}

func TestConnect_ExistingEdgeIsNoop(t *testing.T) {
	g := New(newTestRegistry())
	a := addNode(t, g, "a", "number")
	b := addNode(t, g, "b", "number")
	connect(t, g, a, b)

	events := 0
	g.Subscribe(ListenerFunc(func(Event) { events++ }))
	require.NoError(t, g.Connect(out(a), in(b)))
	assert.Zero(t, events)
	assert.Len(t, g.Edges(), 1)
	assert.Equal(t, []SlotRef{out(a)}, g.IncomingSourceSlots(in(b)))
	assert.Equal(t, []SlotRef{in(b)}, g.OutgoingTargetSlots(out(a)))
}

func TestConnect_MultipleInput(t *testing.T) {
	g := New(newTestRegistry())
	a := addNode(t, g, "a", "number")
	b := addNode(t, g, "b", "integer")
	sink := node.New("sink", "test")
	sink.Inputs = []node.Slot{{Name: "in", Direction: node.Input, Kind: "number", Multiple: true}}
	require.NoError(t, g.InsertNode(sink, sink.Compartment))

	connect(t, g, a, sink)
	connect(t, g, b, sink)
	assert.Len(t, g.IncomingSourceSlots(in(sink)), 2)
}

func TestReconfigureSlots(t *testing.T) {
	g := New(newTestRegistry())
	a := addNode(t, g, "a", "number")
	b := addNode(t, g, "b", "number")
	c := addNode(t, g, "c", "number")
	connect(t, g, a, b)
	connect(t, g, b, c)

	dropped, err := g.ReconfigureSlots(b.ID, []node.Slot{node.InputSlot("in", "integer")}, b.Outputs)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{Source: out(a), Target: in(b)}}, dropped)
	assert.True(t, g.HasEdge(out(b), in(c)))

	_, err = g.ReconfigureSlots(b.ID, []node.Slot{node.InputSlot("x", "number"), node.InputSlot("x", "number")}, nil)
	assert.ErrorContains(t, err, "duplicate")
	_, err = g.ReconfigureSlots(b.ID, []node.Slot{node.OutputSlot("x", "number")}, nil)
	assert.Error(t, err)
	assert.Len(t, b.Outputs, 1, "rejected layouts leave the node untouched")
}

// Random edits never leave the graph cyclic, and every accepted edge
// respects topological order.
func TestConnect_RandomEditsStayAcyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	reg := newTestRegistry()
	g := New(reg)
	var nodes []*node.Node
	for i := 0; i < 12; i++ {
		n := node.New(string(rune('a'+i)), "test")
		n.Inputs = []node.Slot{{Name: "in", Direction: node.Input, Kind: "number", Multiple: true, Optional: true}}
		n.Outputs = []node.Slot{node.OutputSlot("out", "number")}
		require.NoError(t, g.InsertNode(n, n.Compartment))
		nodes = append(nodes, n)
	}

	for i := 0; i < 300; i++ {
		src := nodes[rng.Intn(len(nodes))]
		dst := nodes[rng.Intn(len(nodes))]
		if rng.Intn(4) == 0 {
			g.Disconnect(out(src), in(dst))
			continue
		}
		err := g.Connect(out(src), in(dst))
		if err != nil {
			require.ErrorIs(t, err, ErrStructural)
		}
	}

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, len(nodes))
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n.Name] = i
	}
	for _, e := range g.Edges() {
		src, _ := g.Node(e.Source.Node)
		dst, _ := g.Node(e.Target.Node)
		assert.Less(t, pos[src.Name], pos[dst.Name], "edge %s", e)
	}
}
