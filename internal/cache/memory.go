package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[State]Outputs
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[uuid.UUID]map[State]Outputs)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, nodeID uuid.UUID, state State) (Outputs, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.entries[nodeID][state]
	if !ok {
		return nil, false, nil
	}
	return copyOutputs(out), true, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(_ context.Context, nodeID uuid.UUID, state State, outputs Outputs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	states, ok := m.entries[nodeID]
	if !ok {
		states = make(map[State]Outputs)
		m.entries[nodeID] = states
	}
	sealed := make(Outputs, len(outputs))
	for slot, tbl := range outputs {
		sealed[slot] = tbl.Seal()
	}
	states[state] = sealed
	return nil
}

// DeleteNode implements Backend.
func (m *MemoryBackend) DeleteNode(_ context.Context, nodeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, nodeID)
	return nil
}

// DeleteState implements Backend.
func (m *MemoryBackend) DeleteState(_ context.Context, nodeID uuid.UUID, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if states, ok := m.entries[nodeID]; ok {
		delete(states, state)
		if len(states) == 0 {
			delete(m.entries, nodeID)
		}
	}
	return nil
}

// DeleteAll implements Backend.
func (m *MemoryBackend) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uuid.UUID]map[State]Outputs)
	return nil
}

// Entries implements Backend.
func (m *MemoryBackend) Entries(_ context.Context, nodeID uuid.UUID) (map[State]Outputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[State]Outputs, len(m.entries[nodeID]))
	for state, outputs := range m.entries[nodeID] {
		out[state] = copyOutputs(outputs)
	}
	return out, nil
}

// copyOutputs copies the map; the sealed tables themselves are shared.
func copyOutputs(in Outputs) Outputs {
	out := make(Outputs, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
