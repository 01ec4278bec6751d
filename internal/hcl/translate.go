package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/slotflow/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// paramEvalContext is the evaluation context for parameter expressions.
var paramEvalContext = &hcl.EvalContext{
	Functions: map[string]function.Function{
		"abs":        stdlib.AbsoluteFunc,
		"ceil":       stdlib.CeilFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"concat":     stdlib.ConcatFunc,
		"floor":      stdlib.FloorFunc,
		"format":     stdlib.FormatFunc,
		"join":       stdlib.JoinFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"length":     stdlib.LengthFunc,
		"lower":      stdlib.LowerFunc,
		"max":        stdlib.MaxFunc,
		"min":        stdlib.MinFunc,
		"range":      stdlib.RangeFunc,
		"split":      stdlib.SplitFunc,
		"upper":      stdlib.UpperFunc,
	},
}

func translateSettings(s *settingsBlock) *config.FileSettings {
	return &config.FileSettings{
		Workers:        s.Workers,
		Cache:          s.Cache,
		RedisAddr:      s.RedisAddr,
		RedisPrefix:    s.RedisPrefix,
		RunsDB:         s.RunsDB,
		NotifyURL:      s.NotifyURL,
		SkipOnFailure:  s.SkipOnFailure,
		FailOnWarnings: s.FailOnWarnings,
		Targets:        s.Targets,
	}
}

func translateNode(n *nodeBlock) (*config.NodeDecl, error) {
	if diags := checkEmpty(n.Body); diags.HasErrors() {
		return nil, diags
	}
	decl := &config.NodeDecl{
		Type:        n.Type,
		Name:        n.Name,
		Compartment: n.Compartment,
		Disabled:    n.Disabled,
		PassThrough: n.PassThrough,
		Params:      map[string]cty.Value{},
		Pos:         bodyRange(n.Body).String(),
	}
	if n.Params != nil {
		params, err := evalParams(n.Params.Body)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		decl.Params = params
	}
	if it := n.Iteration; it != nil {
		decl.Iteration = &config.Iteration{
			Mode:          it.Mode,
			Strategy:      it.Strategy,
			Columns:       it.Columns,
			MergeMode:     it.MergeMode,
			DataMergeMode: it.DataMergeMode,
			SkipAmbiguous: it.SkipAmbiguous,
		}
	}
	return decl, nil
}

// evalParams evaluates every attribute of a params block.
func evalParams(body hcl.Body) (map[string]cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(paramEvalContext)
		if diags.HasErrors() {
			return nil, diags
		}
		out[name] = v
	}
	return out, nil
}

// translateConnect reads the from and to addresses. Both may be written as
// strings or as bare traversals such as numbers.out.
func translateConnect(c *connectBlock) (*config.Connection, error) {
	from, err := addressOf(c.From)
	if err != nil {
		return nil, err
	}
	to, err := addressOf(c.To)
	if err != nil {
		return nil, err
	}
	return &config.Connection{From: from, To: to, Pos: c.From.Range().String()}, nil
}

func addressOf(expr hcl.Expression) (string, error) {
	if trav, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		return traversalString(trav)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if v.Type() != cty.String || v.IsNull() {
		return "", &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid slot address",
			Detail:   `A slot address must be a string such as "node.slot" or a reference such as node.slot.`,
			Subject:  expr.Range().Ptr(),
		}
	}
	return v.AsString(), nil
}

func traversalString(trav hcl.Traversal) (string, error) {
	var out string
	for i, step := range trav {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			out = s.Name
		case hcl.TraverseAttr:
			out += "." + s.Name
		default:
			return "", &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid slot address",
				Detail:   fmt.Sprintf("Unsupported traversal step %d in slot address.", i),
				Subject:  trav.SourceRange().Ptr(),
			}
		}
	}
	return out, nil
}

// bodyRange returns the source range of a block body for positions.
func bodyRange(body hcl.Body) hcl.Range {
	if sb, ok := body.(*hclsyntax.Body); ok {
		return sb.SrcRange
	}
	if body == nil {
		return hcl.Range{}
	}
	return body.MissingItemRange()
}
