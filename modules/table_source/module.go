// Package table_source provides a node that emits a table declared in its
// parameters.
package table_source

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
const TypeName = "table_source"

// Module implements the registry.Module interface for this package.
type Module struct{}

// row is one declared row: the item plus its annotations.
type row struct {
	item  cty.Value
	texts []datatable.TextAnnotation
	datas []datatable.DataAnnotation
}

type source struct {
	rows []row
}

// parseRows reads rows declared as a list of objects. The "item" attribute
// is the row's item; other string attributes become text annotations and
// everything else data annotations.
//
//	rows = [{ item = 1, id = "a" }, { item = 2, id = "b", weight = 0.5 }]
func parseRows(v cty.Value) ([]row, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return nil, fmt.Errorf("rows must be a list of objects, got %s", ty.FriendlyName())
	}

	var out []row
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if !el.Type().IsObjectType() && !el.Type().IsMapType() {
			return nil, fmt.Errorf("row %d must be an object, got %s", len(out), el.Type().FriendlyName())
		}
		attrs := el.AsValueMap()
		item, ok := attrs["item"]
		if !ok {
			return nil, fmt.Errorf("row %d has no item attribute", len(out))
		}

		names := make([]string, 0, len(attrs))
		for name := range attrs {
			if name != "item" {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		r := row{item: item}
		for _, name := range names {
			a := attrs[name]
			if a.Type() == cty.String && a.IsKnown() && !a.IsNull() {
				r.texts = append(r.texts, datatable.TextAnnotation{Name: name, Value: a.AsString()})
			} else {
				r.datas = append(r.datas, datatable.DataAnnotation{Name: name, Value: a})
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *source) Validate(_ context.Context, n *node.Node) []node.ValidationIssue {
	if len(s.rows) == 0 {
		return []node.ValidationIssue{node.Warnf(n, "table source declares no rows")}
	}
	return nil
}

func (s *source) Run(_ context.Context, io *node.RunIO) error {
	for _, r := range s.rows {
		if err := io.Emit("out", r.item, r.texts, r.datas); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType(&registry.NodeType{
		Name:        TypeName,
		Description: "Emits the rows declared in its parameters.",
		Outputs:     []node.Slot{node.OutputSlot("out", registry.AnyKind)},
		Params: []registry.ParamDef{
			{Name: "rows", Type: cty.DynamicPseudoType, Required: true, Description: "List of row objects with an item attribute."},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			v, _ := p.Get("rows")
			rows, err := parseRows(v)
			if err != nil {
				return nil, err
			}
			return &source{rows: rows}, nil
		},
	})
}
