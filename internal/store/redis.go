package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/lucas/castlerush/internal/room"
)

const roomsHashKey = "castlerush:rooms"

// Redis is the Registry/Listing collaborator's Redis-backed implementation:
// it makes room metadata visible across processes. When no address is
// configured it falls back to an in-process map, so a single-process
// deployment keeps working without Redis.
type Redis struct {
	client *redis.Client
	mem    *memoryRegistry
}

var _ room.Registry = (*Redis)(nil)

// NewRedis connects to addr, or builds an in-process fallback when addr is
// empty.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		return &Redis{mem: newMemoryRegistry()}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: connect redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Close closes the Redis connection, if any.
func (r *Redis) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// IsConnected reports whether this Redis is backed by a live client rather
// than the in-process fallback.
func (r *Redis) IsConnected() bool {
	return r != nil && r.client != nil
}

// UpdateRoom implements room.Registry.
func (r *Redis) UpdateRoom(meta room.RoomMeta) {
	if r.client == nil {
		r.mem.UpdateRoom(meta)
		return
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.client.HSet(ctx, roomsHashKey, meta.RoomID.String(), data)
}

// RemoveRoom implements room.Registry.
func (r *Redis) RemoveRoom(roomID uuid.UUID) {
	if r.client == nil {
		r.mem.RemoveRoom(roomID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.client.HDel(ctx, roomsHashKey, roomID.String())
}

// ListWaitingRooms returns every listed room currently in the waiting
// phase with exactly one player — the set a joining client may pick from.
func (r *Redis) ListWaitingRooms(ctx context.Context) ([]room.RoomMeta, error) {
	if r.client == nil {
		return r.mem.ListWaitingRooms(), nil
	}

	raw, err := r.client.HGetAll(ctx, roomsHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list rooms: %w", err)
	}

	out := make([]room.RoomMeta, 0, len(raw))
	for _, v := range raw {
		var meta room.RoomMeta
		if err := json.Unmarshal([]byte(v), &meta); err != nil {
			continue
		}
		if isWaitingForOpponent(meta) {
			out = append(out, meta)
		}
	}
	return out, nil
}

func isWaitingForOpponent(meta room.RoomMeta) bool {
	return meta.Status == room.PhaseWaiting && meta.PlayerCount == 1
}

// memoryRegistry is the in-process fallback used when Redis isn't
// configured, keeping room.Registry usable for a single-process deploy.
type memoryRegistry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]room.RoomMeta
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{rooms: make(map[uuid.UUID]room.RoomMeta)}
}

func (m *memoryRegistry) UpdateRoom(meta room.RoomMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[meta.RoomID] = meta
}

func (m *memoryRegistry) RemoveRoom(roomID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}

func (m *memoryRegistry) ListWaitingRooms() []room.RoomMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]room.RoomMeta, 0, len(m.rooms))
	for _, meta := range m.rooms {
		if isWaitingForOpponent(meta) {
			out = append(out, meta)
		}
	}
	return out
}
