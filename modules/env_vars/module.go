// Package env_vars provides a node that emits environment variables as
// text rows.
package env_vars

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/vk/slotflow/modules/kinds"
	"github.com/zclconf/go-cty/cty"
)

// TypeName is the registered node type.
const TypeName = "env_vars"

// Module implements the registry.Module interface for this package. Environ
// replaces os.Environ in tests.
type Module struct {
	Environ func() []string
}

// Register registers the node type with the engine. It depends on the
// kinds module.
//
// The environment is read when the node computes. Cached outputs are not
// invalidated by environment changes.
func (m *Module) Register(r *registry.Registry) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	r.RegisterNodeType(&registry.NodeType{
		Name:        TypeName,
		Description: "Emits one text row per environment variable, annotated with its name.",
		Outputs:     []node.Slot{node.OutputSlot("out", kinds.Text)},
		Params: []registry.ParamDef{
			{Name: "prefix", Type: cty.String, Default: cty.StringVal(""), Description: "Only variables starting with this prefix."},
			{Name: "names", Type: cty.List(cty.String), Description: "Only these variables."},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var prefix string
			var names []string
			if _, err := p.Decode("prefix", &prefix); err != nil {
				return nil, err
			}
			if _, err := p.Decode("names", &names); err != nil {
				return nil, err
			}
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				for _, kv := range selectVars(environ(), prefix, names) {
					texts := []datatable.TextAnnotation{{Name: "name", Value: kv[0]}}
					if err := io.Emit("out", cty.StringVal(kv[1]), texts, nil); err != nil {
						return err
					}
				}
				return nil
			}), nil
		},
	})
}

// selectVars returns the matching name/value pairs sorted by name.
func selectVars(environ []string, prefix string, names []string) [][2]string {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out [][2]string
	for _, e := range environ {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], prefix) {
			continue
		}
		if len(wanted) > 0 && !wanted[pair[0]] {
			continue
		}
		out = append(out, [2]string{pair[0], pair[1]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
