package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
)

// ErrStructural matches every error that rejects a graph edit.
var ErrStructural = errors.New("structural error")

// ErrNotFound is returned for unknown nodes, slots or compartments.
var ErrNotFound = errors.New("not found")

// CycleError rejects an edge that would close a cycle, or reports a cycle
// found while traversing.
type CycleError struct {
	// Path lists the node names along the cycle, first node repeated last.
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "graph contains a cycle"
	}
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Is makes CycleError match ErrStructural.
func (e *CycleError) Is(target error) bool { return target == ErrStructural }

// DuplicateIDError rejects inserting an ID that already exists.
type DuplicateIDError struct {
	What string
	ID   uuid.UUID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %s", e.What, e.ID)
}

// Is makes DuplicateIDError match ErrStructural.
func (e *DuplicateIDError) Is(target error) bool { return target == ErrStructural }

// TypeMismatchError rejects an edge whose target cannot accept the source kind.
type TypeMismatchError struct {
	Source     SlotRef
	Target     SlotRef
	SourceKind datatable.Kind
	TargetKind datatable.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("slot %s of kind %q cannot feed slot %s of kind %q", e.Source, e.SourceKind, e.Target, e.TargetKind)
}

// Is makes TypeMismatchError match ErrStructural.
func (e *TypeMismatchError) Is(target error) bool { return target == ErrStructural }

// SlotCapacityError rejects a second edge into a single-source input.
type SlotCapacityError struct {
	Target   SlotRef
	Existing SlotRef
}

func (e *SlotCapacityError) Error() string {
	return fmt.Sprintf("input slot %s accepts a single edge and is already fed by %s", e.Target, e.Existing)
}

// Is makes SlotCapacityError match ErrStructural.
func (e *SlotCapacityError) Is(target error) bool { return target == ErrStructural }

// ValidationError collects the error-severity issues that block a run.
type ValidationError struct {
	Issues []node.ValidationIssue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return fmt.Sprintf("validation failed with %d issue(s):\n- %s", len(e.Issues), strings.Join(msgs, "\n- "))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
