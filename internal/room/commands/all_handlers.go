package commands

import "github.com/lucas/castlerush/internal/room"

// RegisterAllHandlers registers every gameplay command handler with the
// given registry.
func RegisterAllHandlers(registry *room.HandlerRegistry) {
	registry.Register(NewReadyHandler())
	registry.Register(NewSummonHandler())
	registry.Register(NewUpgradeCostHandler())
}
