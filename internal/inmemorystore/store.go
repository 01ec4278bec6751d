package inmemorystore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
	"github.com/vk/slotflow/internal/nodestore"
)

// Store implements nodestore.Store with sync.Map. The key space is fixed
// when the run is planned while values change constantly, which is the
// access pattern sync.Map is built for.
type Store struct {
	states  sync.Map // uuid.UUID -> node.Status
	outputs sync.Map // uuid.UUID -> map[string]*datatable.Table
	errors  sync.Map // uuid.UUID -> error
}

// New creates an empty store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus implements nodestore.Store.
func (s *Store) SetStatus(_ context.Context, id uuid.UUID, status node.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus implements nodestore.Store.
func (s *Store) GetStatus(_ context.Context, id uuid.UUID) (node.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// SetOutput implements nodestore.Store.
func (s *Store) SetOutput(_ context.Context, id uuid.UUID, outputs map[string]*datatable.Table) error {
	s.outputs.Store(id, outputs)
	return nil
}

// GetOutput implements nodestore.Store.
func (s *Store) GetOutput(_ context.Context, id uuid.UUID) (map[string]*datatable.Table, error) {
	out, ok := s.outputs.Load(id)
	if !ok {
		return nil, nil
	}
	return out.(map[string]*datatable.Table), nil
}

// SetError implements nodestore.Store.
func (s *Store) SetError(_ context.Context, id uuid.UUID, nodeErr error) error {
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError implements nodestore.Store.
func (s *Store) GetError(_ context.Context, id uuid.UUID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Statuses implements nodestore.Store.
func (s *Store) Statuses(context.Context) (map[uuid.UUID]node.Status, error) {
	out := make(map[uuid.UUID]node.Status)
	s.states.Range(func(k, v any) bool {
		out[k.(uuid.UUID)] = v.(node.Status)
		return true
	})
	return out, nil
}
