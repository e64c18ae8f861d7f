package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/combat"
)

// Broadcaster is the Room Orchestrator's transport collaborator: the room
// package never imports the websocket layer directly.
type Broadcaster interface {
	BroadcastToRoom(roomID uuid.UUID, message Envelope)
	SendToSession(roomID uuid.UUID, sessionID uuid.UUID, message Envelope)
}

// Envelope is the wire message shape: {"type": ..., "data": ...}.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Sink is the Result Sink Adapter collaborator. Implementations must not
// block the room; Room calls SaveMatch in its own goroutine and only logs
// failures.
type Sink interface {
	SaveMatch(ctx context.Context, record MatchRecord) error
}

// MatchRecord is the persisted record schema.
type MatchRecord struct {
	Player1ID       string   `json:"player1_id"`
	Player2ID       string   `json:"player2_id"`
	Player1Name     string   `json:"player1_name"`
	Player2Name     string   `json:"player2_name"`
	Player1Deck     []string `json:"player1_deck"`
	Player2Deck     []string `json:"player2_deck"`
	WinnerPlayerNum int      `json:"winner_player_num"`
	Player1CastleHP int      `json:"player1_castle_hp"`
	Player2CastleHP int      `json:"player2_castle_hp"`
	Player1Kills    int      `json:"player1_kills"`
	Player2Kills    int      `json:"player2_kills"`
	BattleDuration  int      `json:"battle_duration"`
	WinReason       string   `json:"win_reason"`
}

// Registry is the Registry/Listing collaborator: the orchestrator pushes
// metadata on size transitions; an external discovery layer owns the
// query surface (internal/api, internal/store).
type Registry interface {
	UpdateRoom(meta RoomMeta)
	RemoveRoom(roomID uuid.UUID)
}

// RoomMeta is the per-room listing record.
type RoomMeta struct {
	RoomID          uuid.UUID `json:"roomId"`
	Status          Phase     `json:"status"`
	PlayerCount     int       `json:"playerCount"`
	HostName        string    `json:"hostName"`
	HostDeckPreview []string  `json:"hostDeckPreview"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AllPlayersPayload is the all_players outbound message body.
type AllPlayersPayload struct {
	Players []PlayerView `json:"players"`
}

// UnitsSyncPayload is the units_sync outbound message body.
type UnitsSyncPayload struct {
	Units []combat.UnitView `json:"units"`
}

// PlayersSyncPayload is the players_sync outbound message body.
type PlayersSyncPayload struct {
	Players []PlayersSyncView `json:"players"`
}

// PhaseChangePayload is the phase_change outbound message body. WinnerID/
// WinReason are only populated when Phase is finished.
type PhaseChangePayload struct {
	Phase     Phase  `json:"phase"`
	WinnerID  string `json:"winnerId,omitempty"`
	WinReason string `json:"winReason,omitempty"`
}

// CountdownUpdatePayload is the countdown_update outbound message body.
type CountdownUpdatePayload struct {
	Countdown int `json:"countdown"`
}

// ErrorPayload is the error outbound message body, sent only to the
// offending client, never broadcast.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// StateView is the replicated room state object sent to clients.
type StateView struct {
	Phase       Phase                 `json:"phase"`
	GameTime    float64                `json:"gameTime"`
	Countdown   int                    `json:"countdown"`
	StageLength float64                `json:"stageLength"`
	Players     map[string]PlayerView  `json:"players"`
	Units       map[string]combat.UnitView `json:"units"`
	WinnerID    string                `json:"winnerId,omitempty"`
	WinReason   string                `json:"winReason,omitempty"`
}
