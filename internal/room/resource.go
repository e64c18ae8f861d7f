package room

import (
	"math"

	"github.com/lucas/castlerush/internal/config"
)

// ResourceSystem implements the per-player regenerating-cost economy from
// specB. It holds only the balance tables; all mutable state lives on
// the Player it is called with.
type ResourceSystem struct {
	balance config.ResourceBalance
}

// NewResourceSystem binds a ResourceSystem to a balance table.
func NewResourceSystem(balance config.ResourceBalance) *ResourceSystem {
	return &ResourceSystem{balance: balance}
}

// Initialize sets a freshly joined player's starting resource state.
func (r *ResourceSystem) Initialize(p *Player) {
	p.Cost = float64(r.balance.InitialCost)
	p.CostLevel = 1
	p.MaxCost = float64(r.balance.MaxLevels[0])
}

// Update regenerates cost by the current level's rate over dtMs, clamped
// to maxCost.
func (r *ResourceSystem) Update(p *Player, dtMs float64) {
	rate := float64(r.balance.RegenPerSecond[p.CostLevel-1])
	p.Cost += rate * dtMs / 1000
	if p.Cost > p.MaxCost {
		p.Cost = p.MaxCost
	}
}

// CanAfford compares in integer units by flooring cost first: never let
// fractional regen round a player into funds they don't actually have.
func (r *ResourceSystem) CanAfford(p *Player, amount int) bool {
	return int(math.Floor(p.Cost)) >= amount
}

// Spend deducts amount if affordable, else leaves cost untouched.
func (r *ResourceSystem) Spend(p *Player, amount int) bool {
	if !r.CanAfford(p, amount) {
		return false
	}
	p.Cost -= float64(amount)
	return true
}

// CanUpgrade reports whether p may advance to the next cost level.
func (r *ResourceSystem) CanUpgrade(p *Player) bool {
	if p.CostLevel >= len(r.balance.MaxLevels) {
		return false
	}
	return int(math.Floor(p.Cost)) >= r.balance.UpgradeCosts[p.CostLevel-1]
}

// Upgrade advances p to the next cost level if affordable.
func (r *ResourceSystem) Upgrade(p *Player) bool {
	if !r.CanUpgrade(p) {
		return false
	}
	p.Cost -= float64(r.balance.UpgradeCosts[p.CostLevel-1])
	p.CostLevel++
	p.MaxCost = float64(r.balance.MaxLevels[p.CostLevel-1])
	return true
}
