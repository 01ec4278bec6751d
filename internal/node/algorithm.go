package node

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/iteration"
	"github.com/zclconf/go-cty/cty"
)

// Algorithm is the work a node performs. Implementations must be
// deterministic: the same inputs and params must produce the same outputs,
// since results are cached on that assumption.
type Algorithm interface {
	// Validate reports configuration problems before a run starts.
	Validate(ctx context.Context, n *Node) []ValidationIssue
	// Run processes one iteration step, emitting rows through io. It should
	// return promptly once ctx is cancelled.
	Run(ctx context.Context, io *RunIO) error
}

// Func adapts a plain function into an Algorithm without validation.
type Func func(ctx context.Context, io *RunIO) error

// Validate implements Algorithm.
func (f Func) Validate(context.Context, *Node) []ValidationIssue { return nil }

// Run implements Algorithm.
func (f Func) Run(ctx context.Context, io *RunIO) error { return f(ctx, io) }

// Severity grades a ValidationIssue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ValidationIssue is one problem found while validating a graph or node.
type ValidationIssue struct {
	Severity Severity
	NodeID   uuid.UUID
	Node     string
	Message  string
}

func (v ValidationIssue) String() string {
	if v.Node == "" {
		return fmt.Sprintf("%s: %s", v.Severity, v.Message)
	}
	return fmt.Sprintf("%s: %s: %s", v.Severity, v.Node, v.Message)
}

// Errorf builds an error-severity issue for n.
func Errorf(n *Node, format string, args ...any) ValidationIssue {
	return ValidationIssue{Severity: SeverityError, NodeID: n.ID, Node: n.Name, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity issue for n.
func Warnf(n *Node, format string, args ...any) ValidationIssue {
	return ValidationIssue{Severity: SeverityWarning, NodeID: n.ID, Node: n.Name, Message: fmt.Sprintf(format, args...)}
}

// RunIO gives an algorithm access to the rows of its current step and to
// the output tables the node owns.
type RunIO struct {
	node    *Node
	step    *iteration.Step
	inputs  map[string]*datatable.Table
	outputs map[string]*datatable.Table
}

// NewRunIO binds a step to the node's input and output tables.
func NewRunIO(n *Node, step *iteration.Step, inputs, outputs map[string]*datatable.Table) *RunIO {
	return &RunIO{node: n, step: step, inputs: inputs, outputs: outputs}
}

// Node returns the node being run.
func (io *RunIO) Node() *Node { return io.node }

// Step returns the current iteration step.
func (io *RunIO) Step() *iteration.Step { return io.step }

// Params returns the node's params.
func (io *RunIO) Params() Params { return io.node.Params }

// Input returns the full table of an input slot.
func (io *RunIO) Input(slot string) *datatable.Table {
	return io.inputs[slot]
}

// Rows returns the rows of an input slot that belong to the current step.
func (io *RunIO) Rows(slot string) []datatable.Row {
	tbl := io.inputs[slot]
	if tbl == nil {
		return nil
	}
	idx := io.step.Rows[slot]
	rows := make([]datatable.Row, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, tbl.Row(i))
	}
	return rows
}

// Emit appends a row to an output slot. The step's merged annotations are
// attached; texts and datas given here override them.
func (io *RunIO) Emit(slot string, item cty.Value, texts []datatable.TextAnnotation, datas []datatable.DataAnnotation) error {
	out, ok := io.outputs[slot]
	if !ok {
		return fmt.Errorf("node %s has no output slot %q", io.node.Name, slot)
	}
	mergedTexts, err := datatable.MergeTexts(datatable.OverwriteExisting, io.step.Texts, texts)
	if err != nil {
		return err
	}
	mergedDatas, err := datatable.MergeDatas(datatable.OverwriteExisting, io.step.Datas, datas)
	if err != nil {
		return err
	}
	_, err = out.Append(item, mergedTexts, mergedDatas, datatable.Lineage{NodeID: io.node.ID, Step: io.step.Index})
	return err
}
