// Package testutil provides fakes and constructors for exercising the room
// orchestrator without a live transport or database.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/config"
	"github.com/lucas/castlerush/internal/room"
	"github.com/lucas/castlerush/internal/room/commands"
)

// FakeBroadcaster records every outbound message instead of sending it over
// a real transport, for assertions in room-level tests.
type FakeBroadcaster struct {
	mu         sync.Mutex
	Broadcasts []room.Envelope
	Direct     []DirectMessage
}

// DirectMessage is a recorded SendToSession call.
type DirectMessage struct {
	SessionID uuid.UUID
	Envelope  room.Envelope
}

// NewFakeBroadcaster creates an empty recorder.
func NewFakeBroadcaster() *FakeBroadcaster {
	return &FakeBroadcaster{}
}

// BroadcastToRoom implements room.Broadcaster.
func (f *FakeBroadcaster) BroadcastToRoom(roomID uuid.UUID, message room.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Broadcasts = append(f.Broadcasts, message)
}

// SendToSession implements room.Broadcaster.
func (f *FakeBroadcaster) SendToSession(roomID uuid.UUID, sessionID uuid.UUID, message room.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Direct = append(f.Direct, DirectMessage{SessionID: sessionID, Envelope: message})
}

// LastOfType returns the most recent broadcast of the given type.
func (f *FakeBroadcaster) LastOfType(msgType string) (room.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Broadcasts) - 1; i >= 0; i-- {
		if f.Broadcasts[i].Type == msgType {
			return f.Broadcasts[i], true
		}
	}
	return room.Envelope{}, false
}

// CountOfType counts broadcasts of the given type.
func (f *FakeBroadcaster) CountOfType(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.Broadcasts {
		if b.Type == msgType {
			n++
		}
	}
	return n
}

// DirectMessagesTo returns every direct message sent to sessionID.
func (f *FakeBroadcaster) DirectMessagesTo(sessionID uuid.UUID) []room.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []room.Envelope
	for _, d := range f.Direct {
		if d.SessionID == sessionID {
			out = append(out, d.Envelope)
		}
	}
	return out
}

// FakeSink records persisted match records instead of writing to Postgres.
type FakeSink struct {
	mu      sync.Mutex
	Records []room.MatchRecord
}

// SaveMatch implements room.Sink.
func (f *FakeSink) SaveMatch(ctx context.Context, record room.MatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records = append(f.Records, record)
	return nil
}

// All returns every recorded match, safely copied.
func (f *FakeSink) All() []room.MatchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]room.MatchRecord, len(f.Records))
	copy(out, f.Records)
	return out
}

// FakeRegistry records listing metadata pushes instead of writing to Redis.
type FakeRegistry struct {
	mu      sync.Mutex
	Updated []room.RoomMeta
	Removed []uuid.UUID
}

// UpdateRoom implements room.Registry.
func (f *FakeRegistry) UpdateRoom(meta room.RoomMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updated = append(f.Updated, meta)
}

// RemoveRoom implements room.Registry.
func (f *FakeRegistry) RemoveRoom(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, id)
}

// NewTestRoom builds a Room wired to fakes and the default catalog/config,
// for table-driven orchestrator tests.
func NewTestRoom(t *testing.T) (*room.Room, *FakeBroadcaster) {
	t.Helper()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}

	registry := room.NewHandlerRegistry()
	commands.RegisterAllHandlers(registry)

	broadcaster := NewFakeBroadcaster()
	cfg := config.Default()

	r := room.NewRoom(uuid.New(), cat, cfg.Balance, cfg.Room, registry, broadcaster, &FakeSink{}, &FakeRegistry{})
	return r, broadcaster
}

// StartRoom runs r.Run in the background and returns a cancel func that
// stops it; tests should always defer the cancel.
func StartRoom(t *testing.T, r *room.Room) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return cancel
}

// JoinTestPlayer joins a fresh session with a random id and fails the test
// on error.
func JoinTestPlayer(t *testing.T, r *room.Room, displayName string, deck []string) (uuid.UUID, room.PlayerView) {
	t.Helper()
	sessionID := uuid.New()
	view, err := r.Join(sessionID, "", displayName, deck)
	if err != nil {
		t.Fatalf("join %s: %v", displayName, err)
	}
	return sessionID, view
}
