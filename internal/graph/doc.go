// Package graph maintains the directed multigraph of nodes connected through
// their slots, partitioned into compartments.
//
// # Invariants
//
// Every mutation either succeeds completely or leaves the graph exactly as
// it was. After any successful mutation:
//   - the node graph is acyclic,
//   - every edge connects an existing output slot to an existing input slot
//     whose kind accepts the source kind,
//   - an input slot without fan-in has at most one incoming edge,
//   - every node belongs to an existing compartment, or to none (uuid.Nil).
//
// Structural errors (CycleError, DuplicateIDError, TypeMismatchError,
// SlotCapacityError) all match ErrStructural with errors.Is.
//
// # Change notification
//
// Listeners registered with Subscribe receive a typed Event after each
// successful mutation, synchronously and in mutation order.
//
// # Concurrency
//
// A Graph is not safe for concurrent mutation. Edits are expected to come
// from a single goroutine and must not overlap with a run over the same
// graph. Concurrent read-only use (as during a run) is safe.
package graph
