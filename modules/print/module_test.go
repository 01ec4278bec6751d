package print_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/testutil"
	"github.com/vk/slotflow/modules/kinds"
	"github.com/vk/slotflow/modules/print"
	"github.com/vk/slotflow/modules/table_source"
)

const src = `
node "table_source" "src" {
  params {
    rows = [
      { item = "hi", lang = "en" },
      { item = { n = 1 } },
    ]
  }
}

node "print" "show" {
  params {
    title = "greetings"
  }
}

connect {
  from = src.out
  to   = show.in
}
`

func TestPrint_WritesRows(t *testing.T) {
	out := &bytes.Buffer{}
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": src},
		&kinds.Module{}, &table_source.Module{}, &print.Module{Out: out})
	require.NoError(t, res.Err)

	text := out.String()
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("== greetings ==")))
	assert.Contains(t, text, `      "hi"  [lang="en"]`)
	assert.Contains(t, text, `      {"n":1}`)
	assert.Contains(t, res.LogOutput, "Printing input")
}

func TestPrint_CachedRunPrintsNothing(t *testing.T) {
	out := &bytes.Buffer{}
	res := testutil.RunPipeline(t, map[string]string{"main.hcl": src},
		&kinds.Module{}, &table_source.Module{}, &print.Module{Out: out})
	require.NoError(t, res.Err)
	out.Reset()

	again := testutil.Rerun(context.Background(), t, res)
	require.NoError(t, again.Err)
	assert.Empty(t, out.String())
}
