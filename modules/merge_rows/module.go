// Package merge_rows provides a node that folds every row sharing a
// matching key into a single row.
package merge_rows

import (
	"context"
	"fmt"
	"math/big"

	"github.com/vk/slotflow/internal/iteration"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// TypeName is the registered node type.
const TypeName = "merge_rows"

// Ops lists the supported fold operations.
var Ops = []string{"list", "sum", "count", "first"}

// Module implements the registry.Module interface for this package.
type Module struct{}

type merger struct {
	op string
}

func (m *merger) Validate(context.Context, *node.Node) []node.ValidationIssue { return nil }

// Run emits one row per step. The step's merged annotations are attached by
// Emit.
func (m *merger) Run(_ context.Context, io *node.RunIO) error {
	var items []cty.Value
	for _, slot := range io.Step().Slots() {
		for _, r := range io.Rows(slot) {
			items = append(items, r.Item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	out, err := fold(m.op, items)
	if err != nil {
		return fmt.Errorf("step %d: %w", io.Step().Index, err)
	}
	return io.Emit("out", out, nil, nil)
}

func fold(op string, items []cty.Value) (cty.Value, error) {
	switch op {
	case "list":
		return cty.TupleVal(items), nil
	case "count":
		return cty.NumberIntVal(int64(len(items))), nil
	case "first":
		return items[0], nil
	case "sum":
		sum := new(big.Float)
		for i, v := range items {
			if v.Type() != cty.Number || v.IsNull() || !v.IsKnown() {
				return cty.NilVal, fmt.Errorf("sum: item %d is %s, not a number", i, v.Type().FriendlyName())
			}
			sum.Add(sum, v.AsBigFloat())
		}
		return cty.NumberVal(sum), nil
	}
	return cty.NilVal, fmt.Errorf("unknown op %q", op)
}

// Register registers the node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType(&registry.NodeType{
		Name:        TypeName,
		Description: "Folds all rows of a matching group into one row.",
		Inputs:      []node.Slot{{Name: "in", Direction: node.Input, Kind: registry.AnyKind, Multiple: true}},
		Outputs:     []node.Slot{node.OutputSlot("out", registry.AnyKind)},
		Params: []registry.ParamDef{
			{Name: "op", Type: cty.String, Default: cty.StringVal("list"), Description: "One of list, sum, count, first."},
		},
		Iteration: iteration.Options{Mode: iteration.Merging},
		New: func(p node.Params) (node.Algorithm, error) {
			var op string
			if _, err := p.Decode("op", &op); err != nil {
				return nil, err
			}
			for _, known := range Ops {
				if op == known {
					return &merger{op: op}, nil
				}
			}
			return nil, fmt.Errorf("unknown op %q, expected one of %v", op, Ops)
		},
	})
}
