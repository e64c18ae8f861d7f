package commands

import "github.com/lucas/castlerush/internal/room"

// UpgradeCostHandler implements room.CommandHandler for upgrade_cost.
type UpgradeCostHandler struct{}

// NewUpgradeCostHandler creates an upgrade_cost command handler.
func NewUpgradeCostHandler() *UpgradeCostHandler {
	return &UpgradeCostHandler{}
}

// CommandType returns room.CommandUpgradeCost.
func (h *UpgradeCostHandler) CommandType() room.CommandType {
	return room.CommandUpgradeCost
}

// Validate checks phase and upgrade affordability.
func (h *UpgradeCostHandler) Validate(ctx *room.CommandContext) error {
	if ctx.Room.Phase() != room.PhasePlaying {
		return room.NewCommandError(room.ErrGameNotPlaying, "match is not in progress")
	}
	if !ctx.Room.Resources().CanUpgrade(ctx.Player) {
		return room.NewCommandError(room.ErrCannotUpgrade, "cannot upgrade at current level or cost")
	}
	return nil
}

// Process advances the player's cost level.
func (h *UpgradeCostHandler) Process(ctx *room.CommandContext) error {
	ctx.Room.Resources().Upgrade(ctx.Player)
	return nil
}
