// Package iteration partitions the rows of a node's input tables into
// iteration steps, the units of work a node is invoked with.
//
// Rows are matched across input slots by the equality of their matching-key
// annotations. Keys are computed once per row and grouped in a map, so the
// cost is linear in the number of rows. Group order is the sorted key order,
// which makes the produced steps independent of input row order.
//
// In Iterating mode every step holds exactly one row per slot. In Merging
// mode a step holds every row that shares the key, zero or more per slot.
package iteration
