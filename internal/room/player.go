package room

import (
	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/combat"
)

// Player is a per-session participant in a Room. It carries no mutex of
// its own: it is only ever touched from the owning Room's single actor
// goroutine, so internal synchronization would be redundant.
type Player struct {
	SessionID        uuid.UUID
	ExternalPlayerID string
	DisplayName      string
	Side             combat.Side

	Cost      float64
	MaxCost   float64
	CostLevel int

	Castle combat.CastleState

	Ready bool

	Deck           []string
	SpawnCooldowns map[string]float64
}

// NewPlayer constructs a Player for a freshly joined session. Resource
// state is seeded by resources.Initialize; castle HP by initialCastleHP.
func NewPlayer(sessionID uuid.UUID, externalPlayerID, displayName string, side combat.Side, deck []string, resources *ResourceSystem, initialCastleHP int) *Player {
	p := &Player{
		SessionID:        sessionID,
		ExternalPlayerID: externalPlayerID,
		DisplayName:      displayName,
		Side:             side,
		Deck:             deck,
		SpawnCooldowns:   make(map[string]float64),
	}
	p.Castle.HP = initialCastleHP
	p.Castle.MaxHP = initialCastleHP
	resources.Initialize(p)
	return p
}

// HasInDeck reports whether unitID is part of the player's validated deck.
func (p *Player) HasInDeck(unitID string) bool {
	for _, id := range p.Deck {
		if id == unitID {
			return true
		}
	}
	return false
}

// CooldownRemaining returns the remaining spawn cooldown for unitID, or 0.
func (p *Player) CooldownRemaining(unitID string) float64 {
	return p.SpawnCooldowns[unitID]
}

// TickCooldowns decrements every spawn cooldown by dtMs, floored at zero.
func (p *Player) TickCooldowns(dtMs float64) {
	for id, remaining := range p.SpawnCooldowns {
		remaining -= dtMs
		if remaining < 0 {
			remaining = 0
		}
		p.SpawnCooldowns[id] = remaining
	}
}

// PlayerView is the wire-facing snapshot of a Player.
type PlayerView struct {
	SessionID        string      `json:"sessionId"`
	ExternalPlayerID string      `json:"externalPlayerId"`
	DisplayName      string      `json:"displayName"`
	Side             combat.Side `json:"side"`
	Cost             int         `json:"cost"`
	MaxCost          int         `json:"maxCost"`
	CostLevel        int         `json:"costLevel"`
	CastleHP         int         `json:"castleHp"`
	MaxCastleHP      int         `json:"maxCastleHp"`
	Ready            bool        `json:"ready"`
	Deck             []string    `json:"deck"`
}

// View renders the player as its wire snapshot. Cost is floored: clients
// never see fractional regen, only the integer units spending compares
// against.
func (p *Player) View() PlayerView {
	return PlayerView{
		SessionID:        p.SessionID.String(),
		ExternalPlayerID: p.ExternalPlayerID,
		DisplayName:      p.DisplayName,
		Side:             p.Side,
		Cost:             int(p.Cost),
		MaxCost:          int(p.MaxCost),
		CostLevel:        p.CostLevel,
		CastleHP:         p.Castle.HP,
		MaxCastleHP:      p.Castle.MaxHP,
		Ready:            p.Ready,
		Deck:             p.Deck,
	}
}

// PlayersSyncView is the per-tick lightweight player snapshot : cost,
// level and castle HP only, no deck/readiness (those don't change mid-tick).
type PlayersSyncView struct {
	SessionID   string `json:"sessionId"`
	Cost        int    `json:"cost"`
	MaxCost     int    `json:"maxCost"`
	CostLevel   int    `json:"costLevel"`
	CastleHP    int    `json:"castleHp"`
	MaxCastleHP int    `json:"maxCastleHp"`
}

// SyncView renders the lightweight per-tick snapshot.
func (p *Player) SyncView() PlayersSyncView {
	return PlayersSyncView{
		SessionID:   p.SessionID.String(),
		Cost:        int(p.Cost),
		MaxCost:     int(p.MaxCost),
		CostLevel:   p.CostLevel,
		CastleHP:    p.Castle.HP,
		MaxCastleHP: p.Castle.MaxHP,
	}
}
