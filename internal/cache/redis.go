package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vk/slotflow/internal/datatable"
)

// DefaultRedisPrefix namespaces the keys written by RedisBackend.
const DefaultRedisPrefix = "slotflow:cache"

// RedisBackend stores entries in redis, one hash per node with a field per
// cache state. Tables are encoded as JSON.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a backend on client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) nodeKey(nodeID uuid.UUID) string {
	return fmt.Sprintf("%s:node:%s", r.prefix, nodeID)
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, nodeID uuid.UUID, state State) (Outputs, bool, error) {
	data, err := r.client.HGet(ctx, r.nodeKey(nodeID), string(state)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis HGET %s: %w", r.nodeKey(nodeID), err)
	}
	out, err := decodeOutputs(data)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Put implements Backend.
func (r *RedisBackend) Put(ctx context.Context, nodeID uuid.UUID, state State, outputs Outputs) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	if err := r.client.HSet(ctx, r.nodeKey(nodeID), string(state), data).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", r.nodeKey(nodeID), err)
	}
	return nil
}

// DeleteNode implements Backend.
func (r *RedisBackend) DeleteNode(ctx context.Context, nodeID uuid.UUID) error {
	if err := r.client.Del(ctx, r.nodeKey(nodeID)).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", r.nodeKey(nodeID), err)
	}
	return nil
}

// DeleteState implements Backend.
func (r *RedisBackend) DeleteState(ctx context.Context, nodeID uuid.UUID, state State) error {
	if err := r.client.HDel(ctx, r.nodeKey(nodeID), string(state)).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", r.nodeKey(nodeID), err)
	}
	return nil
}

// DeleteAll implements Backend. Only keys under the backend's prefix are
// removed.
func (r *RedisBackend) DeleteAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+":node:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis SCAN: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

// Entries implements Backend.
func (r *RedisBackend) Entries(ctx context.Context, nodeID uuid.UUID) (map[State]Outputs, error) {
	fields, err := r.client.HGetAll(ctx, r.nodeKey(nodeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", r.nodeKey(nodeID), err)
	}
	out := make(map[State]Outputs, len(fields))
	for state, data := range fields {
		outputs, err := decodeOutputs([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", shortState(State(state)), err)
		}
		out[State(state)] = outputs
	}
	return out, nil
}

func decodeOutputs(data []byte) (Outputs, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode outputs: %w", err)
	}
	out := make(Outputs, len(raw))
	for slot, msg := range raw {
		tbl, err := datatable.UnmarshalTable(msg)
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", slot, err)
		}
		out[slot] = tbl
	}
	return out, nil
}
