package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/datatable"
	"github.com/vk/slotflow/internal/node"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()

	status, err := s.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, node.StatusPending, status)

	require.NoError(t, s.SetStatus(ctx, id, node.StatusRunning))
	status, err = s.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, node.StatusRunning, status)

	all, err := s.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]node.Status{id: node.StatusRunning}, all)
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()

	output, err := s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, output)

	expected := map[string]*datatable.Table{"out": datatable.Empty("text")}
	require.NoError(t, s.SetOutput(ctx, id, expected))

	output, err = s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, expected, output)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()

	got, err := s.GetError(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	expected := errors.New("a test error occurred")
	require.NoError(t, s.SetError(ctx, id, expected))
	got, err = s.GetError(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	const numGoroutines = 100
	ids := make([]uuid.UUID, numGoroutines)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			_ = s.SetStatus(ctx, ids[i], node.StatusCompleted)
			_ = s.SetError(ctx, ids[i], fmt.Errorf("error for node %d", i))
		}(i)
	}
	wg.Wait()

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			status, err := s.GetStatus(ctx, ids[i])
			assert.NoError(t, err)
			assert.Equal(t, node.StatusCompleted, status, "mismatched status for node %d", i)

			nodeErr, err := s.GetError(ctx, ids[i])
			assert.NoError(t, err)
			assert.EqualError(t, nodeErr, fmt.Sprintf("error for node %d", i))
		}(i)
	}
	wg.Wait()

	all, err := s.Statuses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, numGoroutines)
}
