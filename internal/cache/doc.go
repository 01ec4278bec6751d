// Package cache stores node outputs keyed by node ID and cache state.
//
// A cache state is a fingerprint of everything that determines a node's
// outputs: its type, parameters, slot layout and the states of its direct
// predecessors. Two runs that reach the same state for a node may therefore
// reuse each other's outputs.
//
// # Backends
//
// Storage is pluggable through Backend. MemoryBackend keeps entries in
// process; RedisBackend shares them between processes and survives restarts.
//
// # At most one computation
//
// GetOrCompute guarantees that concurrent callers asking for the same
// (node, state) pair share a single computation. Callers arriving after a
// result was stored observe it as a hit.
package cache
