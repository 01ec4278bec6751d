// Package scheduler provides the scheduling logic for determining which nodes
// of a planned run are ready to execute.
//
// # How It Works
//
// A Plan selects the nodes of a run: every node, or the requested targets
// plus all their ancestors. Each planned node starts with an in-degree equal
// to the number of distinct planned predecessors. The executor:
//  1. Dispatches the nodes returned by Ready.
//  2. Reports every finished node through Done, which decrements the
//     in-degree of its dependents and returns those that reached zero.
//  3. Stops when Pending reaches zero.
//
// Ready nodes are always returned sorted by node ID so that dispatch order
// is deterministic for a given graph.
//
// # Thread-Safety
//
// A Scheduler is owned by the executor's single dispatch goroutine and is
// not safe for concurrent use.
package scheduler

import (
	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/node"
)

// Scheduler hands out nodes as their dependencies finish.
type Scheduler interface {
	// Ready returns the nodes without planned predecessors. It is called
	// once, before any Done.
	Ready() []*node.Node

	// Done marks a node finished, whatever its outcome, and returns the
	// dependents that became ready.
	Done(id uuid.UUID) []*node.Node

	// Pending returns the number of planned nodes not yet reported done.
	Pending() int
}
