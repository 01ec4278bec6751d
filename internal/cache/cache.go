package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/datatable"
	"golang.org/x/sync/singleflight"
)

// State is an opaque, comparable cache fingerprint.
type State string

// Outputs maps output slot names to their sealed tables.
type Outputs map[string]*datatable.Table

// Digest fingerprints the outputs' contents, independent of lineage.
func (o Outputs) Digest() string {
	slots := make([]string, 0, len(o))
	for s := range o {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	h := sha256.New()
	for _, s := range slots {
		fmt.Fprintf(h, "%d:%s%s", len(s), s, o[s].Digest())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IntegrityError reports that Store replaced an entry whose contents
// differed from the new ones. Since outputs are a function of the state,
// this means some node is not deterministic.
type IntegrityError struct {
	NodeID uuid.UUID
	State  State
	Old    string
	New    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cache entry for node %s state %s changed: digest %s replaced by %s", e.NodeID, shortState(e.State), e.Old, e.New)
}

func shortState(s State) string {
	if len(s) > 12 {
		return string(s[:12])
	}
	return string(s)
}

// Backend persists cache entries. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(ctx context.Context, nodeID uuid.UUID, state State) (Outputs, bool, error)
	Put(ctx context.Context, nodeID uuid.UUID, state State, outputs Outputs) error
	DeleteNode(ctx context.Context, nodeID uuid.UUID) error
	DeleteState(ctx context.Context, nodeID uuid.UUID, state State) error
	DeleteAll(ctx context.Context) error
	Entries(ctx context.Context, nodeID uuid.UUID) (map[State]Outputs, error)
}

// Observer receives cache activity, typically to export metrics.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheStore()
}

type nopObserver struct{}

func (nopObserver) CacheHit()   {}
func (nopObserver) CacheMiss()  {}
func (nopObserver) CacheStore() {}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports hits, misses and stores to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// Cache is the engine's view of a Backend.
type Cache struct {
	backend  Backend
	observer Observer
	flight   singleflight.Group
}

// New creates a cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, observer: nopObserver{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the outputs stored for (nodeID, state).
func (c *Cache) Query(ctx context.Context, nodeID uuid.UUID, state State) (Outputs, bool, error) {
	out, ok, err := c.backend.Get(ctx, nodeID, state)
	if err != nil {
		return nil, false, fmt.Errorf("cache query for node %s: %w", nodeID, err)
	}
	return out, ok, nil
}

// Store saves outputs for (nodeID, state), replacing any previous entry.
// If the replaced entry had different contents the new value is kept and
// an *IntegrityError is returned.
func (c *Cache) Store(ctx context.Context, nodeID uuid.UUID, state State, outputs Outputs) error {
	prev, had, err := c.backend.Get(ctx, nodeID, state)
	if err != nil {
		return fmt.Errorf("cache store for node %s: %w", nodeID, err)
	}
	if err := c.backend.Put(ctx, nodeID, state, outputs); err != nil {
		return fmt.Errorf("cache store for node %s: %w", nodeID, err)
	}
	c.observer.CacheStore()
	if had {
		if oldDigest, newDigest := prev.Digest(), outputs.Digest(); oldDigest != newDigest {
			return &IntegrityError{NodeID: nodeID, State: state, Old: oldDigest, New: newDigest}
		}
	}
	return nil
}

// Invalidate drops every entry of a node.
func (c *Cache) Invalidate(ctx context.Context, nodeID uuid.UUID) error {
	return c.backend.DeleteNode(ctx, nodeID)
}

// InvalidateState drops a single entry.
func (c *Cache) InvalidateState(ctx context.Context, nodeID uuid.UUID, state State) error {
	return c.backend.DeleteState(ctx, nodeID, state)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.backend.DeleteAll(ctx)
}

// Extract returns all entries of a node. The tables are sealed and shared.
func (c *Cache) Extract(ctx context.Context, nodeID uuid.UUID) (map[State]Outputs, error) {
	return c.backend.Entries(ctx, nodeID)
}

// ComputeFunc produces the outputs of a node on a cache miss.
type ComputeFunc func(ctx context.Context) (Outputs, error)

// GetOrCompute returns the cached outputs for (nodeID, state), computing
// and storing them on a miss. Concurrent calls for the same key share one
// computation; hit reports whether this caller's result came from storage.
// Integrity errors while storing are logged and do not fail the call.
func (c *Cache) GetOrCompute(ctx context.Context, nodeID uuid.UUID, state State, fn ComputeFunc) (Outputs, bool, error) {
	type flightResult struct {
		outputs Outputs
		hit     bool
	}
	key := nodeID.String() + "/" + string(state)
	ran := false
	v, err, _ := c.flight.Do(key, func() (any, error) {
		ran = true
		if out, ok, err := c.Query(ctx, nodeID, state); err != nil {
			return nil, err
		} else if ok {
			return flightResult{outputs: out, hit: true}, nil
		}

		out, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Store(ctx, nodeID, state, out); err != nil {
			var integrity *IntegrityError
			if !errors.As(err, &integrity) {
				return nil, err
			}
			ctxlog.FromContext(ctx).Warn("Cache entry replaced with different contents.", "nodeID", nodeID, "error", err)
		}
		return flightResult{outputs: out}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(flightResult)
	// Callers that joined another caller's flight did not compute.
	hit := res.hit || !ran
	if hit {
		c.observer.CacheHit()
	} else {
		c.observer.CacheMiss()
	}
	return res.outputs, hit, nil
}
