package api

import (
	"net/http"

	"github.com/lucas/castlerush/internal/room"
	"github.com/lucas/castlerush/internal/transport"
)

// NewRouter creates the HTTP router with all discovery routes.
func NewRouter(rooms *room.Manager, listing Lister, ws *transport.Handler) http.Handler {
	mux := http.NewServeMux()

	handler := NewHandler(rooms, listing, ws)

	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("POST /rooms", handler.CreateRoom)
	mux.HandleFunc("GET /rooms", handler.ListRooms)
	mux.HandleFunc("GET /rooms/{id}", handler.GetRoom)

	mux.HandleFunc("GET /ws/rooms/{id}", handler.WebSocket)

	mux.HandleFunc("/", notFound)

	return corsMiddleware(mux)
}

// corsMiddleware adds permissive CORS headers so any browser-based client
// can reach the discovery API and the websocket upgrade.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
