package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/room"
	"github.com/lucas/castlerush/internal/transport"
)

// Lister is the query side of the Registry/Listing collaborator: an
// external discovery layer reads it, the room package only ever writes
// to it through room.Registry.
type Lister interface {
	ListWaitingRooms(ctx context.Context) ([]room.RoomMeta, error)
}

// Handler contains the discovery HTTP handler methods.
type Handler struct {
	rooms   *room.Manager
	listing Lister
	ws      *transport.Handler
}

// NewHandler creates a new API handler bound to its collaborators.
func NewHandler(rooms *room.Manager, listing Lister, ws *transport.Handler) *Handler {
	return &Handler{rooms: rooms, listing: listing, ws: ws}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateRoom starts a new room and returns its id.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	rm := h.rooms.CreateRoom()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"roomId": rm.ID,
		"phase":  rm.Phase(),
	})
}

// ListRooms returns every waiting room with exactly one player, the set a
// matchmaking client can join.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.listing.ListWaitingRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

// GetRoom returns a room's current snapshot.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	rm, err := h.rooms.GetRoom(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rm.Snapshot())
}

// WebSocket upgrades the connection and attaches it to the named room.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if _, err := h.rooms.GetRoom(roomID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.ws.ServeWS(w, r, roomID)
}

// notFound is the JSON fallback for unmatched routes.
func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
