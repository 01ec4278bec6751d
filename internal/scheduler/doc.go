// Package scheduler decides which nodes of a graph run, and in which order
// they become ready.
package scheduler
