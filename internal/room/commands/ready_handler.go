package commands

import "github.com/lucas/castlerush/internal/room"

// ReadyHandler implements room.CommandHandler for the ready command.
// Membership is already guaranteed by Room dispatch (an unknown session
// never reaches a handler), so Validate has nothing further to check: two
// successive ready calls from the same player are idempotent by
// construction.
type ReadyHandler struct{}

// NewReadyHandler creates a ready command handler.
func NewReadyHandler() *ReadyHandler {
	return &ReadyHandler{}
}

// CommandType returns room.CommandReady.
func (h *ReadyHandler) CommandType() room.CommandType {
	return room.CommandReady
}

// Validate always succeeds for ready.
func (h *ReadyHandler) Validate(ctx *room.CommandContext) error {
	return nil
}

// Process marks the player ready.
func (h *ReadyHandler) Process(ctx *room.CommandContext) error {
	ctx.Player.Ready = true
	return nil
}
