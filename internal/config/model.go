package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader reads pipeline declarations from files or directories.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Pipeline, error)
}

// Pipeline is the declared content of one or more pipeline files.
type Pipeline struct {
	// Settings is nil when no file carried a settings block.
	Settings     *FileSettings
	Compartments []*Compartment
	Nodes        []*NodeDecl
	Connections  []*Connection
}

// Compartment declares a named group of nodes.
type Compartment struct {
	Name string
	// Pos is the declaration's source position, e.g. "pipeline.hcl:3,1".
	Pos string
}

// NodeDecl declares one node instance.
type NodeDecl struct {
	Type        string
	Name        string
	Compartment string
	Params      map[string]cty.Value
	Disabled    bool
	PassThrough bool
	// Iteration is nil when the node uses the default iteration options.
	Iteration *Iteration
	Pos       string
}

// Iteration holds the textual iteration options of a node.
type Iteration struct {
	Mode          string
	Strategy      string
	Columns       []string
	MergeMode     string
	DataMergeMode string
	SkipAmbiguous bool
}

// Connection declares an edge between two slot addresses in nodeid form.
type Connection struct {
	From string
	To   string
	Pos  string
}
