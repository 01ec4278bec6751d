package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/zclconf/go-cty/cty"
)

func TestNode_IsIdentity(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(n *Node)
		want   bool
	}{
		{name: "plain node", mutate: func(n *Node) {}, want: false},
		{name: "disabled", mutate: func(n *Node) { n.Enabled = false }, want: true},
		{name: "pass-through flag", mutate: func(n *Node) { n.PassThrough = true }, want: true},
		{name: "pass-through kind", mutate: func(n *Node) { n.Kind = KindPassThrough | KindCompartmentBoundary }, want: true},
		{name: "boundary only", mutate: func(n *Node) { n.Kind = KindCompartmentBoundary }, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := New("n", "test")
			tc.mutate(n)
			assert.Equal(t, tc.want, n.IsIdentity())
		})
	}
}

func TestNode_Clone(t *testing.T) {
	n := New("n", "test")
	n.Inputs = []Slot{InputSlot("in", "any")}
	n.Outputs = []Slot{OutputSlot("out", "any")}

	c := n.Clone()
	c.Inputs[0].Name = "changed"

	assert.Equal(t, n.ID, c.ID)
	assert.Equal(t, "in", n.Inputs[0].Name)
	_, ok := c.Slot(Input, "changed")
	assert.True(t, ok)
	_, ok = n.Output("out")
	assert.True(t, ok)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "none", Kind(0).String())
	assert.Equal(t, "pass_through|user_defined_output", (KindPassThrough | KindUserDefinedOutput).String())
}

func TestParams(t *testing.T) {
	p := NewParams(map[string]cty.Value{
		"threshold": cty.NumberIntVal(3),
		"labels":    cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
	})

	var threshold int
	ok, err := p.Decode("threshold", &threshold)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, threshold)

	var labels []string
	ok, err = p.Decode("labels", &labels)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, labels)

	var missing string
	ok, err = p.Decode("missing", &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Decode("threshold", threshold)
	assert.Error(t, err, "non-pointer target")
}

func TestParams_SnapshotIsCanonical(t *testing.T) {
	a := NewParams(map[string]cty.Value{"x": cty.StringVal("1"), "y": cty.True})
	b := NewParams(nil).With("y", cty.True).With("x", cty.StringVal("1"))
	c := a.With("x", cty.StringVal("2"))

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, NewParams(nil).Snapshot(), Params{}.Snapshot())
}

func TestParamsFromValue(t *testing.T) {
	p, err := ParamsFromValue(cty.MapVal(map[string]cty.Value{"k": cty.StringVal("v")}))
	require.NoError(t, err)
	v, ok := p.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v.AsString())

	_, err = ParamsFromValue(cty.StringVal("nope"))
	assert.Error(t, err)

	_, err = ParamsFromValue(cty.ObjectVal(map[string]cty.Value{"k": cty.UnknownVal(cty.String)}))
	assert.Error(t, err)
}

func TestRunIO_Emit(t *testing.T) {
	n := New("n", "test")
	in := datatable.NewTable("text")
	_, err := in.Append(cty.StringVal("a"), datatable.Texts(map[string]string{"id": "1"}), nil, datatable.Lineage{})
	require.NoError(t, err)
	in.Seal()

	out := datatable.NewTable("text")
	step := &iteration.Step{
		Index: 4,
		Rows:  map[string][]int{"in": {0}},
		Texts: datatable.Texts(map[string]string{"id": "1", "group": "g"}),
	}
	io := NewRunIO(n, step, map[string]*datatable.Table{"in": in}, map[string]*datatable.Table{"out": out})

	rows := io.Rows("in")
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Item.AsString())

	require.NoError(t, io.Emit("out", cty.StringVal("A"), datatable.Texts(map[string]string{"group": "h"}), nil))
	assert.Error(t, io.Emit("nope", cty.StringVal("A"), nil, nil))

	require.Equal(t, 1, out.Len())
	row := out.Row(0)
	assert.Equal(t, []datatable.TextAnnotation{{Name: "group", Value: "h"}, {Name: "id", Value: "1"}}, row.Texts)
	assert.Equal(t, n.ID, row.Lineage.NodeID)
	assert.Equal(t, 4, row.Lineage.Step)
}

func TestFunc(t *testing.T) {
	called := false
	var alg Algorithm = Func(func(ctx context.Context, io *RunIO) error {
		called = true
		return nil
	})
	assert.Empty(t, alg.Validate(context.Background(), New("n", "t")))
	require.NoError(t, alg.Run(context.Background(), nil))
	assert.True(t, called)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "cached", StatusCached.String())
	assert.True(t, StatusCached.Succeeded())
	assert.True(t, StatusSkipped.Done())
	assert.False(t, StatusRunning.Done())
	assert.Equal(t, "unknown", Status(42).String())
}
