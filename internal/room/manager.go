package room

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/config"
)

// ErrRoomNotFound is returned when a room id has no matching live room.
var ErrRoomNotFound = errors.New("room: not found")

// Manager owns every live Room: one process-wide registry keyed by id, a
// shared HandlerRegistry wired in once at startup, and shared
// transport/persistence/listing collaborators handed to each Room it
// creates.
type Manager struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*managedRoom

	baseCtx context.Context

	catalog  *catalog.Catalog
	balance  config.BalanceConfig
	roomCfg  config.RoomConfig
	registry *HandlerRegistry

	broadcaster Broadcaster
	sink        Sink
	listing     Registry
}

type managedRoom struct {
	room   *Room
	cancel context.CancelFunc
}

// NewManager constructs a Manager bound to its shared collaborators. Every
// room it creates runs under baseCtx, not the caller's per-request
// context, so a match outlives the HTTP request that created it; baseCtx
// is the process lifetime context, cancelled on graceful shutdown.
func NewManager(baseCtx context.Context, cat *catalog.Catalog, balance config.BalanceConfig, roomCfg config.RoomConfig, registry *HandlerRegistry, broadcaster Broadcaster, sink Sink, listing Registry) *Manager {
	return &Manager{
		rooms:       make(map[uuid.UUID]*managedRoom),
		baseCtx:     baseCtx,
		catalog:     cat,
		balance:     balance,
		roomCfg:     roomCfg,
		registry:    registry,
		broadcaster: broadcaster,
		sink:        sink,
		listing:     listing,
	}
}

// CreateRoom builds a new Room, starts its actor loop under the manager's
// base context, and reaps it from the registry once the loop exits (match
// finished, or the room was abandoned empty in the waiting phase).
func (m *Manager) CreateRoom() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	r := NewRoom(id, m.catalog, m.balance, m.roomCfg, m.registry, m.broadcaster, m.sink, m.listing)
	roomCtx, cancel := context.WithCancel(m.baseCtx)

	m.rooms[id] = &managedRoom{room: r, cancel: cancel}

	go r.Run(roomCtx)
	go m.reap(id, r)

	return r
}

// reap removes a room from the registry once its actor loop exits.
func (m *Manager) reap(id uuid.UUID, r *Room) {
	<-r.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
}

// GetRoom returns a live room by id.
func (m *Manager) GetRoom(id uuid.UUID) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mr, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return mr.room, nil
}

// CloseRoom cancels a room's actor loop, forcing it to stop regardless of
// phase. Used by operator tooling, not by normal match flow.
func (m *Manager) CloseRoom(id uuid.UUID) error {
	m.mu.RLock()
	mr, ok := m.rooms[id]
	m.mu.RUnlock()

	if !ok {
		return ErrRoomNotFound
	}
	mr.cancel()
	return nil
}

// Count reports how many rooms are currently live.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Shutdown cancels every live room's actor loop, for graceful process exit.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mr := range m.rooms {
		mr.cancel()
	}
}
