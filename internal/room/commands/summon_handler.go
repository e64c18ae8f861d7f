package commands

import "github.com/lucas/castlerush/internal/room"

// SummonHandler implements room.CommandHandler for summon{unitId},
// validating in order: phase, known unit, deck membership, cooldown,
// affordability.
type SummonHandler struct{}

// NewSummonHandler creates a summon command handler.
func NewSummonHandler() *SummonHandler {
	return &SummonHandler{}
}

// CommandType returns room.CommandSummon.
func (h *SummonHandler) CommandType() room.CommandType {
	return room.CommandSummon
}

// Validate runs the ordered checks against the catalog's summon row.
func (h *SummonHandler) Validate(ctx *room.CommandContext) error {
	if ctx.Room.Phase() != room.PhasePlaying {
		return room.NewCommandError(room.ErrGameNotPlaying, "match is not in progress")
	}

	def, ok := ctx.Room.Catalog().Lookup(ctx.UnitID)
	if !ok {
		return room.NewCommandError(room.ErrInvalidUnit, "unknown unit id")
	}
	if !ctx.Player.HasInDeck(ctx.UnitID) {
		return room.NewCommandError(room.ErrUnitNotInDeck, "unit not in deck")
	}
	if ctx.Player.CooldownRemaining(ctx.UnitID) > 0 {
		return room.NewCommandError(room.ErrCooldown, "unit is on cooldown")
	}
	if !ctx.Room.Resources().CanAfford(ctx.Player, def.Cost) {
		return room.NewCommandError(room.ErrInsufficientCost, "insufficient resource")
	}

	return nil
}

// Process spends the unit's cost, spawns it, and starts its cooldown. On a
// post-spend spawn failure the spend is refunded before SPAWN_FAILED is
// reported, so a failed spawn never costs the player resources.
func (h *SummonHandler) Process(ctx *room.CommandContext) error {
	def, _ := ctx.Room.Catalog().Lookup(ctx.UnitID)

	ctx.Room.Resources().Spend(ctx.Player, def.Cost)

	id, err := ctx.Room.SpawnUnit(ctx.Player, ctx.UnitID)
	if err != nil {
		ctx.Player.Cost += float64(def.Cost)
		return room.NewCommandError(room.ErrSpawnFailed, "failed to spawn unit")
	}

	idStr := id.String()
	ctx.SpawnedUnitID = &idStr
	ctx.Player.SpawnCooldowns[ctx.UnitID] = float64(def.EffectiveSpawnCooldownMs())

	return nil
}
