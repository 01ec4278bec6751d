package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/node"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Validate performs a consistency check of every registered node type: slot
// kinds must be registered, slot names unique, defaults must conform to the
// declared parameter types, and only pass-through types may lack a factory.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.NodeTypes() {
		t := r.types[name]
		if t.New == nil && !t.Kind.Has(node.KindPassThrough) {
			errs = append(errs, fmt.Sprintf("node type '%s': no algorithm factory and not pass-through", name))
		}

		for _, slots := range [][]node.Slot{t.Inputs, t.Outputs} {
			seen := make(map[string]struct{})
			for _, s := range slots {
				if _, dup := seen[s.Name]; dup {
					errs = append(errs, fmt.Sprintf("node type '%s': duplicate %s slot '%s'", name, s.Direction, s.Name))
				}
				seen[s.Name] = struct{}{}
				if !r.HasKind(s.Kind) {
					errs = append(errs, fmt.Sprintf("node type '%s': slot '%s' uses unregistered kind '%s'", name, s.Name, s.Kind))
				}
			}
		}

		for _, p := range t.Params {
			if p.Type == cty.NilType || p.Type.Equals(cty.DynamicPseudoType) {
				logger.Warn("Node type has a parameter with 'any' type, which disables type checking.", "nodeType", name, "param", p.Name)
				continue
			}
			if p.Default == cty.NilVal || p.Default.IsNull() {
				continue
			}
			if _, err := convert.Convert(p.Default, p.Type); err != nil {
				errs = append(errs, fmt.Sprintf("node type '%s', param '%s': default does not conform to %s: %v", name, p.Name, p.Type.FriendlyName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// resolveParams fills defaults and converts values to declared types.
// Types without declarations accept any params unchanged.
func (t *NodeType) resolveParams(params node.Params) (node.Params, error) {
	if len(t.Params) == 0 {
		return params, nil
	}
	given := params.Attrs()
	declared := make(map[string]ParamDef, len(t.Params))
	out := make(map[string]cty.Value, len(t.Params))

	for _, def := range t.Params {
		declared[def.Name] = def
		v, ok := given[def.Name]
		if !ok || v.IsNull() {
			if def.Required {
				return node.Params{}, fmt.Errorf("missing required param %q", def.Name)
			}
			if def.Default == cty.NilVal {
				continue
			}
			v = def.Default
		}
		if def.Type != cty.NilType && !def.Type.Equals(cty.DynamicPseudoType) {
			converted, err := convert.Convert(v, def.Type)
			if err != nil {
				return node.Params{}, fmt.Errorf("param %q: %w", def.Name, err)
			}
			v = converted
		}
		out[def.Name] = v
	}
	for name := range given {
		if _, ok := declared[name]; !ok {
			return node.Params{}, fmt.Errorf("unknown param %q", name)
		}
	}
	return node.NewParams(out), nil
}
