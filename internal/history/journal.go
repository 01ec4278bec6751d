// Package history makes graph edits reversible. Every interactive edit is
// paired with a Snapshot that can undo and redo it; a Journal keeps the
// undo and redo stacks, and an Editor performs edits and records their
// snapshots in one step.
//
// Graph and Journal are single-threaded: edits must not run concurrently
// with each other or with a run over the same graph.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/graph"
)

// ErrNothingToUndo is returned by Undo on an empty undo stack.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is returned by Redo on an empty redo stack.
var ErrNothingToRedo = errors.New("nothing to redo")

// Snapshot is the reversible record of one logical edit.
type Snapshot interface {
	Name() string
	Undo(g *graph.Graph) error
	Redo(g *graph.Graph) error
}

// Journal holds the undo and redo stacks of one graph.
type Journal struct {
	graph    *graph.Graph
	undo     []Snapshot
	redo     []Snapshot
	capacity int
}

// NewJournal creates a journal for g. A positive capacity bounds the undo
// stack; the oldest snapshots are dropped first.
func NewJournal(g *graph.Graph, capacity int) *Journal {
	return &Journal{graph: g, capacity: capacity}
}

// Record pushes a snapshot of an edit that was just applied and clears the
// redo stack.
func (j *Journal) Record(s Snapshot) {
	j.undo = append(j.undo, s)
	j.redo = nil
	if j.capacity > 0 && len(j.undo) > j.capacity {
		j.undo = append([]Snapshot(nil), j.undo[len(j.undo)-j.capacity:]...)
	}
}

// Undo reverts the most recent edit. If reverting fails the snapshot stays
// on the undo stack.
func (j *Journal) Undo(ctx context.Context) error {
	if len(j.undo) == 0 {
		return ErrNothingToUndo
	}
	s := j.undo[len(j.undo)-1]
	ctxlog.FromContext(ctx).Debug("Undoing edit.", "name", s.Name())
	if err := s.Undo(j.graph); err != nil {
		return fmt.Errorf("undo %q: %w", s.Name(), err)
	}
	j.undo = j.undo[:len(j.undo)-1]
	j.redo = append(j.redo, s)
	return nil
}

// Redo re-applies the most recently undone edit.
func (j *Journal) Redo(ctx context.Context) error {
	if len(j.redo) == 0 {
		return ErrNothingToRedo
	}
	s := j.redo[len(j.redo)-1]
	ctxlog.FromContext(ctx).Debug("Redoing edit.", "name", s.Name())
	if err := s.Redo(j.graph); err != nil {
		return fmt.Errorf("redo %q: %w", s.Name(), err)
	}
	j.redo = j.redo[:len(j.redo)-1]
	j.undo = append(j.undo, s)
	return nil
}

// CanUndo reports whether there is an edit to undo.
func (j *Journal) CanUndo() bool { return len(j.undo) > 0 }

// CanRedo reports whether there is an undone edit to redo.
func (j *Journal) CanRedo() bool { return len(j.redo) > 0 }

// UndoName names the edit Undo would revert, or "".
func (j *Journal) UndoName() string {
	if len(j.undo) == 0 {
		return ""
	}
	return j.undo[len(j.undo)-1].Name()
}

// RedoName names the edit Redo would re-apply, or "".
func (j *Journal) RedoName() string {
	if len(j.redo) == 0 {
		return ""
	}
	return j.redo[len(j.redo)-1].Name()
}

// Clear empties both stacks.
func (j *Journal) Clear() {
	j.undo, j.redo = nil, nil
}

// Compound groups snapshots into one unit of undo.
type Compound struct {
	Children []Snapshot
}

// Name joins the children's names.
func (c *Compound) Name() string {
	names := make([]string, len(c.Children))
	for i, s := range c.Children {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}

// Undo reverts the children in reverse order.
func (c *Compound) Undo(g *graph.Graph) error {
	for i := len(c.Children) - 1; i >= 0; i-- {
		if err := c.Children[i].Undo(g); err != nil {
			return err
		}
	}
	return nil
}

// Redo re-applies the children in order.
func (c *Compound) Redo(g *graph.Graph) error {
	for _, s := range c.Children {
		if err := s.Redo(g); err != nil {
			return err
		}
	}
	return nil
}
