package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ProbeType is the node type registered by ProbeModule.
const ProbeType = "probe"

// ExecutionRecord holds the start and end times of one computed step.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// ProbeModule registers a node type that forwards its input rows, or emits
// its own name when nothing is connected, and records every step it
// computes. Params: sleep (duration string), fail (error message).
type ProbeModule struct {
	mu      sync.Mutex
	records map[string][]ExecutionRecord
}

// NewProbeModule creates an empty probe.
func NewProbeModule() *ProbeModule {
	return &ProbeModule{records: map[string][]ExecutionRecord{}}
}

// Register implements registry.Module.
func (m *ProbeModule) Register(r *registry.Registry) {
	r.RegisterNodeType(&registry.NodeType{
		Name:        ProbeType,
		Description: "Test node that records its executions.",
		Inputs:      []node.Slot{{Name: "in", Direction: node.Input, Kind: registry.AnyKind, Multiple: true, Optional: true}},
		Outputs:     []node.Slot{node.OutputSlot("out", registry.AnyKind)},
		Params: []registry.ParamDef{
			{Name: "sleep", Type: cty.String, Default: cty.StringVal("0s")},
			{Name: "fail", Type: cty.String, Default: cty.StringVal("")},
		},
		New: func(p node.Params) (node.Algorithm, error) {
			var sleepStr, fail string
			if _, err := p.Decode("sleep", &sleepStr); err != nil {
				return nil, err
			}
			if _, err := p.Decode("fail", &fail); err != nil {
				return nil, err
			}
			sleep, err := time.ParseDuration(sleepStr)
			if err != nil {
				return nil, err
			}
			return node.Func(func(ctx context.Context, io *node.RunIO) error {
				start := time.Now()
				defer func() { m.record(io.Node().Name, ExecutionRecord{Start: start, End: time.Now()}) }()

				select {
				case <-time.After(sleep):
				case <-ctx.Done():
					return ctx.Err()
				}
				if fail != "" {
					return errors.New(fail)
				}
				if io.Input("in") == nil {
					return io.Emit("out", cty.StringVal(io.Node().Name), nil, nil)
				}
				for _, row := range io.Rows("in") {
					if err := io.Emit("out", row.Item, row.Texts, row.Datas); err != nil {
						return err
					}
				}
				return nil
			}), nil
		},
	})
}

func (m *ProbeModule) record(name string, rec ExecutionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = append(m.records[name], rec)
}

// Calls returns how many steps the named probe computed.
func (m *ProbeModule) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[name])
}

// Records returns the execution records of the named probe.
func (m *ProbeModule) Records(name string) []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRecord(nil), m.records[name]...)
}

// Items returns the items of a table as Go strings, numbers as their
// decimal text.
func Items(tbl *datatable.Table) []string {
	if tbl == nil {
		return nil
	}
	out := make([]string, 0, tbl.Len())
	for _, r := range tbl.Rows() {
		switch {
		case r.Item.IsNull():
			out = append(out, "null")
		case r.Item.Type() == cty.String:
			out = append(out, r.Item.AsString())
		case r.Item.Type() == cty.Number:
			out = append(out, r.Item.AsBigFloat().Text('f', -1))
		default:
			out = append(out, r.Item.GoString())
		}
	}
	return out
}
