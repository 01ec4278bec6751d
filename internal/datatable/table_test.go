package datatable

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func buildTable(t *testing.T, values ...string) *Table {
	t.Helper()
	tbl := NewTable("text")
	for i, v := range values {
		_, err := tbl.Append(cty.StringVal(v), Texts(map[string]string{"idx": string(rune('a' + i))}), nil, Lineage{Step: -1})
		require.NoError(t, err)
	}
	return tbl
}

func TestTable_AppendAndSeal(t *testing.T) {
	tbl := buildTable(t, "A", "B")
	assert.Equal(t, 2, tbl.Len())
	assert.False(t, tbl.Sealed())

	tbl.Seal()
	_, err := tbl.Append(cty.StringVal("C"), nil, nil, Lineage{})
	assert.ErrorIs(t, err, ErrSealed)
	assert.Equal(t, 2, tbl.Len())

	v, ok := tbl.Row(1).Text("idx")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestTable_AppendNormalizesAnnotations(t *testing.T) {
	tbl := NewTable("text")
	_, err := tbl.Append(cty.StringVal("x"), []TextAnnotation{{"b", "1"}, {"a", "2"}, {"b", "3"}}, nil, Lineage{})
	require.NoError(t, err)

	assert.Equal(t, []TextAnnotation{{"a", "2"}, {"b", "3"}}, tbl.Row(0).Texts)
	assert.Equal(t, []string{"a", "b"}, tbl.TextAnnotationColumns())
}

func TestTable_Digest(t *testing.T) {
	a := buildTable(t, "A", "B").Seal()
	b := buildTable(t, "A", "B").Seal()
	c := buildTable(t, "B", "A").Seal()

	assert.Equal(t, a.Digest(), b.Digest(), "equal content must hash equally")
	assert.NotEqual(t, a.Digest(), c.Digest(), "row order is significant")
}

func TestTable_DigestIgnoresLineage(t *testing.T) {
	a := NewTable("text")
	b := NewTable("text")
	_, _ = a.Append(cty.StringVal("x"), nil, nil, Lineage{NodeID: uuid.New(), Step: 0})
	_, _ = b.Append(cty.StringVal("x"), nil, nil, Lineage{NodeID: uuid.New(), Step: 3})

	assert.Equal(t, a.Digest(), b.Digest())
}

func TestConcat(t *testing.T) {
	a := buildTable(t, "A").Seal()
	b := buildTable(t, "B", "C").Seal()

	out := Concat("text", a, nil, b)
	assert.True(t, out.Sealed())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, "C", out.Row(2).Item.AsString())
}

func TestTable_JSONRoundTrip(t *testing.T) {
	tbl := NewTable("record")
	id := uuid.New()
	_, err := tbl.Append(
		cty.ObjectVal(map[string]cty.Value{"size": cty.NumberIntVal(3)}),
		Texts(map[string]string{"id": "1"}),
		[]DataAnnotation{{Name: "source", Value: cty.StringVal("disk")}},
		Lineage{NodeID: id, Step: 2},
	)
	require.NoError(t, err)
	_, err = tbl.Append(cty.NilVal, nil, nil, Lineage{Step: -1})
	require.NoError(t, err)

	raw, err := tbl.MarshalJSON()
	require.NoError(t, err)

	decoded, err := UnmarshalTable(raw)
	require.NoError(t, err)
	assert.True(t, decoded.Sealed())
	assert.Equal(t, tbl.Digest(), decoded.Digest())
	assert.Equal(t, id, decoded.Row(0).Lineage.NodeID)
	assert.True(t, decoded.Row(1).Item.IsNull())
}
