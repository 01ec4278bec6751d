// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface, used for every local run.
package inmemorystore
