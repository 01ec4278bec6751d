package table_source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestTableSource_EmitsDeclaredRows(t *testing.T) {
	src := `
node "table_source" "people" {
  params {
    rows = [
      { item = "ada", team = "core", age = 36 },
      { item = "bob", team = "web" },
    ]
  }
}
`
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": src})
	require.NoError(t, res.Err)

	out := testutil.Output(t, res, "people", "out")
	assert.Equal(t, []string{"ada", "bob"}, testutil.Items(out))

	rows := out.Rows()
	team, ok := rows[0].Text("team")
	require.True(t, ok)
	assert.Equal(t, "core", team)
	age, ok := rows[0].Data("age")
	require.True(t, ok)
	assert.True(t, age.RawEquals(cty.NumberIntVal(36)))
	_, ok = rows[1].Data("age")
	assert.False(t, ok)
}

func TestTableSource_InvalidRows(t *testing.T) {
	testCases := []struct {
		name    string
		rows    string
		wantErr string
	}{
		{name: "not a list", rows: `"nope"`, wantErr: "rows must be a list of objects"},
		{name: "row not an object", rows: `[1, 2]`, wantErr: "row 0 must be an object"},
		{name: "missing item", rows: `[{ id = "a" }]`, wantErr: "row 0 has no item attribute"},
		{name: "missing rows", rows: ``, wantErr: `missing required param "rows"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := ""
			if tc.rows != "" {
				params = "params {\n    rows = " + tc.rows + "\n  }"
			}
			src := "node \"table_source\" \"t\" {\n  " + params + "\n}\n"
			res := testutil.RunPipeline(t, map[string]string{"main.hcl": src})
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tc.wantErr)
		})
	}
}
