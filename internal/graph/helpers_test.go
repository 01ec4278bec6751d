package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
)

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterKind("number", registry.AnyKind)
	reg.RegisterKind("integer", "number")
	reg.RegisterKind("text", registry.AnyKind)
	return reg
}

var noop = node.Func(func(context.Context, *node.RunIO) error { return nil })

// addNode inserts a node with one optional "in" and one "out" slot of kind.
func addNode(t *testing.T, g *Graph, name string, kind datatable.Kind) *node.Node {
	t.Helper()
	n := node.New(name, "test")
	n.Inputs = []node.Slot{{Name: "in", Direction: node.Input, Kind: kind, Optional: true}}
	n.Outputs = []node.Slot{node.OutputSlot("out", kind)}
	n.Algorithm = noop
	require.NoError(t, g.InsertNode(n, uuid.Nil))
	return n
}

func out(n *node.Node) SlotRef { return SlotRef{Node: n.ID, Slot: "out"} }
func in(n *node.Node) SlotRef  { return SlotRef{Node: n.ID, Slot: "in"} }

func connect(t *testing.T, g *Graph, from, to *node.Node) {
	t.Helper()
	require.NoError(t, g.Connect(out(from), in(to)))
}
