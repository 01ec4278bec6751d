package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const pipelineSrc = `
settings {
  workers         = 2
  cache           = "redis"
  skip_on_failure = true
  targets         = ["report"]
}

compartment "ingest" {}

node "table_source" "numbers" {
  compartment = "ingest"
  params {
    column = upper("id")
    values = range(3)
  }
}

node "annotate" "tag" {
  pass_through = true
  iteration {
    mode     = "merging"
    strategy = "custom"
    columns  = ["id"]
  }
}

node "print" "report" {
  disabled = true
}

connect {
  from = "ingest/numbers.out"
  to   = tag.in
}

connect {
  from = tag.out
  to   = "report.in"
}
`

func TestLoadSource(t *testing.T) {
	p, err := NewLoader().LoadSource([]byte(pipelineSrc), "pipeline.hcl")
	require.NoError(t, err)

	require.NotNil(t, p.Settings)
	assert.Equal(t, 2, *p.Settings.Workers)
	assert.Equal(t, "redis", *p.Settings.Cache)
	assert.True(t, *p.Settings.SkipOnFailure)
	assert.Nil(t, p.Settings.RunsDB)
	assert.Equal(t, []string{"report"}, p.Settings.Targets)

	require.Len(t, p.Compartments, 1)
	assert.Equal(t, "ingest", p.Compartments[0].Name)

	require.Len(t, p.Nodes, 3)
	numbers := p.Nodes[0]
	assert.Equal(t, "table_source", numbers.Type)
	assert.Equal(t, "numbers", numbers.Name)
	assert.Equal(t, "ingest", numbers.Compartment)
	assert.Equal(t, cty.StringVal("ID"), numbers.Params["column"])
	assert.Equal(t, 3, numbers.Params["values"].LengthInt())
	assert.Contains(t, numbers.Pos, "pipeline.hcl:")
	assert.Nil(t, numbers.Iteration)

	tag := p.Nodes[1]
	assert.True(t, tag.PassThrough)
	require.NotNil(t, tag.Iteration)
	assert.Equal(t, "merging", tag.Iteration.Mode)
	assert.Equal(t, []string{"id"}, tag.Iteration.Columns)
	assert.Empty(t, tag.Params)

	assert.True(t, p.Nodes[2].Disabled)

	require.Len(t, p.Connections, 2)
	assert.Equal(t, "ingest/numbers.out", p.Connections[0].From)
	assert.Equal(t, "tag.in", p.Connections[0].To)
	assert.Equal(t, "tag.out", p.Connections[1].From)
	assert.Equal(t, "report.in", p.Connections[1].To)
}

func TestLoadSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `node "x" {`},
		{"unknown block", `pipeline "x" {}`},
		{"unknown node attribute", `node "print" "p" { colour = "red" }`},
		{"duplicate settings", "settings {}\nsettings {}"},
		{"bad address", `connect {
  from = 42
  to   = "b.in"
}`},
		{"index in address", `connect {
  from = a.out[0]
  to   = "b.in"
}`},
		{"param error", `node "print" "p" {
  params { x = unknown_fn(1) }
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadSource([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`node "print" "a" {}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "more"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more", "b.hcl"), []byte(`
node "print" "b" {}
connect {
  from = a.out
  to   = b.in
}`), 0o644))

	p, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "a", p.Nodes[0].Name)
	assert.Equal(t, "b", p.Nodes[1].Name)
	assert.Len(t, p.Connections, 1)
	assert.Nil(t, p.Settings)
}

func TestLoad_DuplicateSettingsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`settings {}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`settings {}`), 0o644))

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings")
}

func TestLoad_NoFiles(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	require.Error(t, err)
}
