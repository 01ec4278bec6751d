package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/slotflow/internal/config"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one pipeline. At most one settings block may appear across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	p := &config.Pipeline{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decodeFile(f, p); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.",
		"compartments", len(p.Compartments),
		"nodes", len(p.Nodes),
		"connections", len(p.Connections),
		"settings", p.Settings != nil,
	)
	return p, nil
}

// LoadSource parses a single in-memory pipeline file. The filename is used
// in positions and diagnostics only.
func (l *Loader) LoadSource(src []byte, filename string) (*config.Pipeline, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	p := &config.Pipeline{}
	if err := l.decodeFile(f, p); err != nil {
		return nil, fmt.Errorf("failed to decode HCL %s: %w", filename, err)
	}
	return p, nil
}

func (l *Loader) decodeFile(f *hcl.File, p *config.Pipeline) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return diags
	}
	if diags := checkEmpty(root.Remain); diags.HasErrors() {
		return diags
	}

	for _, s := range root.Settings {
		if p.Settings != nil {
			return &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  `Duplicate "settings" block`,
				Detail:   `Only one "settings" block is allowed across all pipeline files.`,
				Subject:  bodyRange(s.Body).Ptr(),
			}
		}
		p.Settings = translateSettings(s)
	}
	for _, c := range root.Compartments {
		if diags := checkEmpty(c.Body); diags.HasErrors() {
			return diags
		}
		p.Compartments = append(p.Compartments, &config.Compartment{Name: c.Name, Pos: bodyRange(c.Body).String()})
	}
	for _, n := range root.Nodes {
		decl, err := translateNode(n)
		if err != nil {
			return err
		}
		p.Nodes = append(p.Nodes, decl)
	}
	for _, c := range root.Connects {
		conn, err := translateConnect(c)
		if err != nil {
			return err
		}
		p.Connections = append(p.Connections, conn)
	}
	return nil
}

// checkEmpty rejects unknown attributes or blocks left in a remain body.
func checkEmpty(body hcl.Body) hcl.Diagnostics {
	if body == nil {
		return nil
	}
	_, diags := body.Content(&hcl.BodySchema{})
	return diags
}
