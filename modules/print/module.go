// Package print provides a node that writes the rows it receives to an
// output stream.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// TypeName is the registered node type.
const TypeName = "print"

// Module implements the registry.Module interface for this package. Out
// defaults to os.Stdout.
type Module struct {
	Out io.Writer

	mu sync.Mutex
}

// Register registers the handler with the engine.
//
// Printing happens when the node computes: a run served from the cache
// prints nothing.
func (m *Module) Register(r *registry.Registry) {
	if m.Out == nil {
		m.Out = os.Stdout
	}
	r.RegisterNodeType(&registry.NodeType{
		Name:        TypeName,
		Description: "Prints every row with its annotations.",
		Inputs:      []node.Slot{{Name: "in", Direction: node.Input, Kind: registry.AnyKind, Multiple: true}},
		Params: []registry.ParamDef{
			{Name: "title", Type: cty.String, Default: cty.StringVal(""), Description: "Heading printed before the rows."},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var title string
			if _, err := p.Decode("title", &title); err != nil {
				return nil, err
			}
			return node.Func(func(ctx context.Context, rio *node.RunIO) error {
				return m.print(ctx, rio, title)
			}), nil
		},
	})
}

// print writes the rows of one step. Steps of concurrently running print
// nodes do not interleave.
func (m *Module) print(ctx context.Context, rio *node.RunIO, title string) error {
	rows := rio.Rows("in")
	ctxlog.FromContext(ctx).Info("Printing input", "node", rio.Node().Name, "rows", len(rows))

	m.mu.Lock()
	defer m.mu.Unlock()
	if title != "" && rio.Step().Index == 0 {
		if _, err := fmt.Fprintf(m.Out, "== %s ==\n", title); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(m.Out, "      (null)")
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(m.Out, "      %s%s\n", formatItem(r.Item), formatTexts(r.Texts)); err != nil {
			return err
		}
	}
	return nil
}

func formatItem(v cty.Value) string {
	if !v.IsKnown() || v.IsNull() {
		return "null"
	}
	if v.Type() == cty.String {
		return fmt.Sprintf("%q", v.AsString())
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

func formatTexts(texts []datatable.TextAnnotation) string {
	if len(texts) == 0 {
		return ""
	}
	parts := make([]string, len(texts))
	for i, t := range texts {
		parts[i] = fmt.Sprintf("%s=%q", t.Name, t.Value)
	}
	return "  [" + strings.Join(parts, " ") + "]"
}
