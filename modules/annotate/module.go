// Package annotate provides a node that adds text annotations to every row
// it receives.
package annotate

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// TypeName is the registered node type.
const TypeName = "annotate"

// Module implements the registry.Module interface for this package.
type Module struct{}

type annotator struct {
	texts []datatable.TextAnnotation
	mode  datatable.MergeMode
}

func (a *annotator) Validate(_ context.Context, n *node.Node) []node.ValidationIssue {
	if len(a.texts) == 0 {
		return []node.ValidationIssue{node.Warnf(n, "no annotations configured; rows pass unchanged")}
	}
	return nil
}

// Run re-emits every row of the step with the configured annotations merged
// into the row's own.
func (a *annotator) Run(_ context.Context, io *node.RunIO) error {
	for _, r := range io.Rows("in") {
		texts, err := datatable.MergeTexts(a.mode, r.Texts, a.texts)
		if err != nil {
			return fmt.Errorf("step %d: %w", io.Step().Index, err)
		}
		if err := io.Emit("out", r.Item, texts, r.Datas); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType(&registry.NodeType{
		Name:        TypeName,
		Description: "Adds text annotations to every row.",
		Inputs:      []node.Slot{node.InputSlot("in", registry.AnyKind)},
		Outputs:     []node.Slot{node.OutputSlot("out", registry.AnyKind)},
		Params: []registry.ParamDef{
			{Name: "texts", Type: cty.Map(cty.String), Default: cty.MapValEmpty(cty.String), Description: "Annotations to add."},
			{Name: "mode", Type: cty.String, Default: cty.StringVal("overwrite"), Description: "How existing annotations of the same name are treated."},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var texts map[string]string
			var modeName string
			if _, err := p.Decode("texts", &texts); err != nil {
				return nil, err
			}
			if _, err := p.Decode("mode", &modeName); err != nil {
				return nil, err
			}
			mode, err := datatable.ParseMergeMode(modeName)
			if err != nil {
				return nil, err
			}
			a := &annotator{mode: mode}
			names := make([]string, 0, len(texts))
			for name := range texts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				a.texts = append(a.texts, datatable.TextAnnotation{Name: name, Value: texts[name]})
			}
			return a, nil
		},
	})
}
