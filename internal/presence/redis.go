package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRegistry stores room membership in Redis so presence survives a
// gateway restart and can be shared by several instances. Each room is one
// key holding a JSON list of member names, refreshed with the TTL on every
// write, matching the entry-lifetime safety net of the memory registry.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry creates a RedisRegistry from a redis URL
// (redis://host:port/db). ttl <= 0 falls back to DefaultTTL.
func NewRedisRegistry(redisURL string, ttl time.Duration) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

// Ping checks the connection.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// Heartbeat implements Registry.
func (r *RedisRegistry) Heartbeat(ctx context.Context, roomID, memberName string) ([]string, error) {
	names, err := r.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, name := range names {
		if name == memberName {
			found = true
			break
		}
	}
	if !found {
		names = append(names, memberName)
	}

	if err := r.store(ctx, roomID, names); err != nil {
		return nil, err
	}
	return names, nil
}

// Remove implements Registry.
func (r *RedisRegistry) Remove(ctx context.Context, roomID, memberName string) ([]string, error) {
	names, err := r.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	remaining := names[:0]
	for _, name := range names {
		if name != memberName {
			remaining = append(remaining, name)
		}
	}

	if len(remaining) == 0 {
		if err := r.client.Del(ctx, roomKey(roomID)).Err(); err != nil {
			return nil, fmt.Errorf("failed to delete presence room: %w", err)
		}
		return nil, nil
	}

	if err := r.store(ctx, roomID, remaining); err != nil {
		return nil, err
	}
	return remaining, nil
}

// Connected implements Registry.
func (r *RedisRegistry) Connected(ctx context.Context, roomID string) ([]string, error) {
	return r.load(ctx, roomID)
}

func (r *RedisRegistry) load(ctx context.Context, roomID string) ([]string, error) {
	raw, err := r.client.Get(ctx, roomKey(roomID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presence room: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to decode presence room: %w", err)
	}
	return names, nil
}

func (r *RedisRegistry) store(ctx context.Context, roomID string, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode presence room: %w", err)
	}
	if err := r.client.Set(ctx, roomKey(roomID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write presence room: %w", err)
	}
	return nil
}

func roomKey(roomID string) string {
	return "wishlist_" + roomID
}
