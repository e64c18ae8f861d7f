// Package transport implements the websocket Hub/Client pair that backs
// room.Broadcaster: one register/unregister/broadcast actor loop per
// process, with clients grouped by room.
package transport

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lucas/castlerush/internal/room"
)

// Client is one websocket connection, subscribed to exactly one room for
// its lifetime.
type Client struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte

	hub *Hub
}

// Hub tracks every connected Client grouped by room and implements
// room.Broadcaster; the room package never imports gorilla/websocket
// directly.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	direct     chan directMsg
}

type broadcastMsg struct {
	roomID  uuid.UUID
	message room.Envelope
}

type directMsg struct {
	roomID    uuid.UUID
	sessionID uuid.UUID
	message   room.Envelope
}

var _ room.Broadcaster = (*Hub)(nil)

// NewHub creates an empty Hub. Callers must `go hub.Run()` once.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 256),
		direct:     make(chan directMsg, 256),
	}
}

// Run drains the hub's channels for the life of the process; callers stop
// it by exiting, not by cancellation.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.sendToRoom(msg.roomID, msg.message, uuid.Nil)
		case msg := <-h.direct:
			h.sendToRoom(msg.roomID, msg.message, msg.sessionID)
		}
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[c.RoomID] == nil {
		h.rooms[c.RoomID] = make(map[*Client]bool)
	}
	h.rooms[c.RoomID][c] = true
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[c.RoomID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.Send)
			if len(clients) == 0 {
				delete(h.rooms, c.RoomID)
			}
		}
	}
}

// sendToRoom delivers data to every client in roomID, or only to
// onlySession when it is not uuid.Nil.
func (h *Hub) sendToRoom(roomID uuid.UUID, message room.Envelope, onlySession uuid.UUID) {
	h.mu.RLock()
	clients, ok := h.rooms[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		if onlySession == uuid.Nil || c.ID == onlySession {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("transport: failed to marshal %s message: %v", message.Type, err)
		return
	}

	for _, c := range targets {
		select {
		case c.Send <- data:
		default:
			h.unregister <- c
		}
	}
}

// BroadcastToRoom implements room.Broadcaster.
func (h *Hub) BroadcastToRoom(roomID uuid.UUID, message room.Envelope) {
	h.broadcast <- broadcastMsg{roomID: roomID, message: message}
}

// SendToSession implements room.Broadcaster.
func (h *Hub) SendToSession(roomID uuid.UUID, sessionID uuid.UUID, message room.Envelope) {
	h.direct <- directMsg{roomID: roomID, sessionID: sessionID, message: message}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// RoomClientCount returns how many clients are attached to roomID.
func (h *Hub) RoomClientCount(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
