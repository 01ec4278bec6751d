package executor

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeExecutionError wraps a failure inside a node's algorithm.
type NodeExecutionError struct {
	NodeID   uuid.UUID
	NodeName string
	// Step is the iteration step that failed, or -1 when the failure is not
	// tied to a step.
	Step int
	Err  error
}

func (e *NodeExecutionError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("node %s failed: %v", e.NodeName, e.Err)
	}
	return fmt.Sprintf("node %s failed at step %d: %v", e.NodeName, e.Step, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// NodeFailure pairs a failed node with its error.
type NodeFailure struct {
	NodeID uuid.UUID
	Node   string
	Err    error
}

// Warning is a non-fatal problem reported during a run.
type Warning struct {
	NodeID  uuid.UUID
	Node    string
	Message string
}

func (w Warning) String() string {
	if w.Node == "" {
		return w.Message
	}
	return w.Node + ": " + w.Message
}
