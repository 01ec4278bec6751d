package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// counters records how often each node name ran a step.
type counters struct {
	m map[string]*atomic.Int64
}

func (c *counters) inc(name string) {
	c.m[name].Add(1)
}

func (c *counters) get(name string) int64 {
	if v, ok := c.m[name]; ok {
		return v.Load()
	}
	return 0
}

type fixture struct {
	reg   *registry.Registry
	g     *graph.Graph
	calls *counters
	nodes map[string]*node.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: registry.New(), calls: &counters{m: map[string]*atomic.Int64{}}, nodes: map[string]*node.Node{}}
	f.reg.RegisterKind("number", registry.AnyKind)

	f.reg.RegisterNodeType(&registry.NodeType{
		Name:    "source",
		Outputs: []node.Slot{node.OutputSlot("out", "number")},
		Params: []registry.ParamDef{
			{Name: "values", Type: cty.List(cty.Number), Required: true},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var values []float64
			if _, err := p.Decode("values", &values); err != nil {
				return nil, err
			}
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				f.calls.inc(io.Node().Name)
				for i, v := range values {
					texts := datatable.Texts(map[string]string{"id": fmt.Sprint(i)})
					if err := io.Emit("out", cty.NumberFloatVal(v), texts, nil); err != nil {
						return err
					}
				}
				return nil
			}), nil
		},
	})

	f.reg.RegisterNodeType(&registry.NodeType{
		Name:    "scale",
		Inputs:  []node.Slot{node.InputSlot("in", "number")},
		Outputs: []node.Slot{node.OutputSlot("out", "number")},
		Params: []registry.ParamDef{
			{Name: "factor", Type: cty.Number, Default: cty.NumberIntVal(1)},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var factor float64
			if _, err := p.Decode("factor", &factor); err != nil {
				return nil, err
			}
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				f.calls.inc(io.Node().Name)
				for _, row := range io.Rows("in") {
					if err := io.Emit("out", row.Item.Multiply(cty.NumberFloatVal(factor)), nil, nil); err != nil {
						return err
					}
				}
				return nil
			}), nil
		},
	})

	f.reg.RegisterNodeType(&registry.NodeType{
		Name:    "fail",
		Inputs:  []node.Slot{node.InputSlot("in", "number")},
		Outputs: []node.Slot{node.OutputSlot("out", "number")},
		New: func(node.Params) (node.Algorithm, error) {
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				f.calls.inc(io.Node().Name)
				return errors.New("boom")
			}), nil
		},
	})
	f.reg.RegisterNodeType(&registry.NodeType{
		Name: "join",
		Inputs: []node.Slot{
			{Name: "left", Direction: node.Input, Kind: "number", Multiple: true},
			node.InputSlot("right", "number"),
		},
		Outputs: []node.Slot{node.OutputSlot("out", "number")},
		New: func(node.Params) (node.Algorithm, error) {
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				f.calls.inc(io.Node().Name)
				for _, row := range io.Rows("left") {
					if err := io.Emit("out", row.Item, nil, nil); err != nil {
						return err
					}
				}
				return nil
			}), nil
		},
	})
	require.NoError(t, f.reg.Validate(context.Background()))
	f.g = graph.New(f.reg)
	return f
}

func (f *fixture) add(t *testing.T, typeName, name string, params map[string]cty.Value) *node.Node {
	t.Helper()
	n, err := f.reg.NewNode(typeName, name, params)
	require.NoError(t, err)
	require.NoError(t, f.g.InsertNode(n, uuid.Nil))
	f.nodes[name] = n
	f.calls.m[name] = &atomic.Int64{}
	return n
}

func (f *fixture) source(t *testing.T, name string, values ...int64) *node.Node {
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.NumberIntVal(v)
	}
	return f.add(t, "source", name, map[string]cty.Value{"values": cty.ListVal(vals)})
}

func (f *fixture) connect(t *testing.T, from, fromSlot, to, toSlot string) {
	t.Helper()
	require.NoError(t, f.g.Connect(
		graph.SlotRef{Node: f.nodes[from].ID, Slot: fromSlot},
		graph.SlotRef{Node: f.nodes[to].ID, Slot: toSlot},
	))
}

// numbers returns the items of a table as int64s.
func numbers(t *testing.T, tbl *datatable.Table) []int64 {
	t.Helper()
	require.NotNil(t, tbl)
	out := make([]int64, 0, tbl.Len())
	for _, r := range tbl.Rows() {
		v, _ := r.Item.AsBigFloat().Int64()
		out = append(out, v)
	}
	return out
}
