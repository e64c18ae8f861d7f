package transport

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lucas/castlerush/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RoomProvider resolves a room by id, satisfied by *room.Manager.
type RoomProvider interface {
	GetRoom(roomID uuid.UUID) (*room.Room, error)
}

// Handler upgrades incoming connections to websockets and wires each one to
// its room, deserializing {type, data} envelopes into room commands.
type Handler struct {
	hub   *Hub
	rooms RoomProvider
}

// NewHandler constructs a websocket Handler bound to hub and rooms.
func NewHandler(hub *Hub, rooms RoomProvider) *Handler {
	return &Handler{hub: hub, rooms: rooms}
}

// ServeWS upgrades the request and attaches the resulting client to roomID.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, roomID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New(),
		RoomID: roomID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    h.hub,
	}

	h.hub.Register(client)

	go client.writePump()
	go client.readPump(
		func(message []byte) { h.handleMessage(client, message) },
		func() { h.handleClose(client) },
	)
}

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	ExternalPlayerID string   `json:"externalPlayerId"`
	DisplayName      string   `json:"displayName"`
	Deck             []string `json:"deck"`
}

type summonPayload struct {
	UnitID string `json:"unitId"`
}

func (h *Handler) handleMessage(c *Client, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("transport: failed to parse client message: %v", err)
		return
	}

	r, err := h.rooms.GetRoom(c.RoomID)
	if err != nil {
		c.sendEnvelope(room.Envelope{Type: "error", Data: room.ErrorPayload{
			Code:    room.ErrGameNotPlaying,
			Message: "room no longer exists",
		}})
		return
	}

	switch env.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		view, err := r.Join(c.ID, p.ExternalPlayerID, p.DisplayName, p.Deck)
		if err != nil {
			code := room.ErrGameNotPlaying
			if ce, ok := err.(*room.CommandError); ok {
				code = ce.Code
			}
			c.sendEnvelope(room.Envelope{Type: "error", Data: room.ErrorPayload{Code: code, Message: err.Error()}})
			return
		}
		c.sendEnvelope(room.Envelope{Type: "join_ack", Data: view})
		c.sendEnvelope(room.Envelope{Type: "state", Data: r.Snapshot()})

	case "ready":
		r.Submit(c.ID, room.CommandReady, "")

	case "summon":
		var p summonPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		r.Submit(c.ID, room.CommandSummon, p.UnitID)

	case "upgrade_cost":
		r.Submit(c.ID, room.CommandUpgradeCost, "")

	default:
		log.Printf("transport: unknown message type %q", env.Type)
	}
}

func (h *Handler) handleClose(c *Client) {
	r, err := h.rooms.GetRoom(c.RoomID)
	if err != nil {
		return
	}
	r.Leave(c.ID)
}

// sendEnvelope marshals and queues message on the client's own send
// channel, bypassing the hub's room-membership lookup for replies that
// must reach this connection specifically before it may even have joined
// a match (e.g. a rejected join).
func (c *Client) sendEnvelope(message room.Envelope) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("transport: failed to marshal %s message: %v", message.Type, err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
