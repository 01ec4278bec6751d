// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of nodes during one graph run.
//
// # Why Node Store Exists
//
// The node store separates per-run state (status, outputs, errors) from the
// graph structure. The graph is edited by the user between runs and is read
// only while a run is in progress; the store is written by every worker.
//
// # Lifecycle and Usage
//
// A store is:
//  1. Created once per run.
//  2. Initialized with every planned node in Pending status.
//  3. Mutated by workers as nodes move through their states.
//  4. Read by workers assembling a node's inputs from its predecessors.
//  5. Read once more to build the run result, then discarded.
//
// # State Transitions
//
//	Pending -> Running -> Completed | Cached | Failed
//	Pending -> Skipped | Cancelled
package nodestore

import (
	"context"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
)

// Store manages the mutable execution state of nodes during a run.
//
// Implementations MUST be safe for concurrent reads and writes: several
// workers update different nodes while others read finished outputs.
type Store interface {
	// SetStatus records a node's status.
	SetStatus(ctx context.Context, id uuid.UUID, status node.Status) error

	// GetStatus returns a node's status, StatusPending if none was set.
	GetStatus(ctx context.Context, id uuid.UUID) (node.Status, error)

	// SetOutput records the sealed output tables of a finished node, keyed
	// by output slot name.
	SetOutput(ctx context.Context, id uuid.UUID, outputs map[string]*datatable.Table) error

	// GetOutput returns a node's outputs, or nil if it has none yet.
	GetOutput(ctx context.Context, id uuid.UUID) (map[string]*datatable.Table, error)

	// SetError records why a node failed or was skipped.
	SetError(ctx context.Context, id uuid.UUID, nodeErr error) error

	// GetError returns the recorded error of a node, or nil.
	GetError(ctx context.Context, id uuid.UUID) (error, error)

	// Statuses returns a copy of every recorded status.
	Statuses(ctx context.Context) (map[uuid.UUID]node.Status, error)
}
