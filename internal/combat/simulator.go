package combat

import (
	"errors"
	"math"

	"github.com/lucas/castlerush/internal/catalog"
)

// ErrUnknownUnit is returned by SpawnUnit for a unit id the catalog does not
// recognize.
var ErrUnknownUnit = errors.New("combat: unknown unit id")

// Config holds the fixed geometry/timing constants for one arena.
type Config struct {
	StageLength           float64
	Player1CastleX        float64
	Player2CastleX        float64
	MinSameSideGap        float64
	SpawnToWalkMs         float64
	HitstunMs             float64
	DeathLingerMs         float64
	KnockbackThresholdPct float64
	TargetingRangePadding float64
	SpawnInsetFromCastle  float64
}

// DefaultConfig returns the default battle constants.
func DefaultConfig() Config {
	return Config{
		StageLength:           1200,
		Player1CastleX:        80,
		Player2CastleX:        1120,
		MinSameSideGap:        30,
		SpawnToWalkMs:         300,
		HitstunMs:             200,
		DeathLingerMs:         500,
		KnockbackThresholdPct: 0.15,
		TargetingRangePadding: 20,
		SpawnInsetFromCastle:  50,
	}
}

// CastleState is the combat-relevant slice of a player: its castle's
// hit points and the kill count its units have accumulated. Held by
// reference so the simulator mutates the room's Player in place without
// the combat package importing the room package.
type CastleState struct {
	HP      int
	MaxHP   int
	Kills   int
}

// Damage subtracts amount from HP, clamped at zero.
func (c *CastleState) Damage(amount int) {
	c.HP -= amount
	if c.HP < 0 {
		c.HP = 0
	}
}

// WinResult reports a win detected during Update.
type WinResult struct {
	HasWinner bool
	Winner    Side
	Reason    string
}

// Simulator is a pure function of (arena state, Δt); it holds no match
// state of its own beyond fixed configuration and a read-only catalog
// reference for spawn-time lookups.
type Simulator struct {
	cfg     Config
	catalog *catalog.Catalog
}

// NewSimulator creates a Simulator bound to a catalog and configuration.
func NewSimulator(cfg Config, cat *catalog.Catalog) *Simulator {
	return &Simulator{cfg: cfg, catalog: cat}
}

// CastleX returns the lane position of the given side's castle.
func (s *Simulator) CastleX(side Side) float64 {
	if side == Player1 {
		return s.cfg.Player1CastleX
	}
	return s.cfg.Player2CastleX
}

// SpawnUnit creates a new unit for side from unitID. The only failure mode
// is an unrecognized unit id.
func (s *Simulator) SpawnUnit(arena *Arena, side Side, unitID string) (ID, error) {
	def, ok := s.catalog.Lookup(unitID)
	if !ok {
		return ID{}, ErrUnknownUnit
	}

	castleX := s.CastleX(side)
	inset := s.cfg.SpawnInsetFromCastle
	x := castleX + inset
	if side == Player2 {
		x = castleX - inset
	}

	u := Unit{
		DefinitionID:      unitID,
		Side:              side,
		X:                 x,
		HP:                def.MaxHP,
		MaxHP:             def.MaxHP,
		State:             StateSpawn,
		TargetID:          nil,
		DamageAccumulated: 0,
		Width:             def.UnitWidth(),
		Speed:             def.Speed,
		AttackDamage:      def.AttackDamage,
		AttackRange:       def.AttackRange,
		AttackCooldownMs:  def.AttackCooldownMs,
		AttackWindupMs:    def.AttackWindupMs,
		Knockback:         def.Knockback,
		IsBoss:            def.IsBoss,
	}

	return arena.Spawn(u), nil
}

// Update advances the simulation by dtMs. castles must be indexed by Side
// (castles[Player1], castles[Player2]). The fixed tick order — per-unit
// state update, same-side collision resolution, targeting, cleanup, win
// check — is fixed; resource regen and cooldown decay happen
// one level up, in the room orchestrator, before this is called.
func (s *Simulator) Update(dtMs float64, arena *Arena, castles [2]*CastleState) WinResult {
	for _, u := range arena.Live() {
		u.StateTimerMs += dtMs
		if u.State == StateDie {
			continue
		}
		s.updateUnit(u, dtMs, arena, castles)
	}

	s.resolveCollisions(arena)
	s.assignTargets(arena)
	s.cleanup(arena)

	return s.checkWin(castles)
}

func (s *Simulator) updateUnit(u *Unit, dtMs float64, arena *Arena, castles [2]*CastleState) {
	switch u.State {
	case StateSpawn:
		if u.StateTimerMs >= s.cfg.SpawnToWalkMs {
			u.enterState(StateWalk)
		}

	case StateWalk:
		if target, ok := s.liveTarget(u, arena); ok && isInRange(u, target) {
			u.enterState(StateAttackWindup)
			return
		}
		if s.inCastleRange(u) {
			u.enterState(StateAttackWindup)
			return
		}
		if s.isBlockedByEnemy(u, arena) {
			return
		}
		u.X += u.Speed * (dtMs / 1000) * u.Side.Direction()
		s.clampMovement(u)

	case StateAttackWindup:
		if u.StateTimerMs >= float64(u.AttackWindupMs) {
			s.resolveDamage(u, arena, castles)
			u.enterState(StateAttackCooldown)
		}

	case StateAttackCooldown:
		if u.StateTimerMs >= float64(u.AttackCooldownMs) {
			if target, ok := s.liveTarget(u, arena); ok && isInRange(u, target) {
				u.enterState(StateAttackWindup)
				return
			}
			if s.inCastleRange(u) {
				u.enterState(StateAttackWindup)
				return
			}
			u.TargetID = nil
			u.enterState(StateWalk)
		}

	case StateHitstun:
		if u.StateTimerMs >= s.cfg.HitstunMs {
			u.enterState(StateWalk)
		}

	case StateDie:
		// no transitions; removed in cleanup.
	}
}

// liveTarget resolves a unit's TargetID to a live, non-removed target.
func (s *Simulator) liveTarget(u *Unit, arena *Arena) (*Unit, bool) {
	if u.TargetID == nil {
		return nil, false
	}
	t, ok := arena.Get(*u.TargetID)
	if !ok || !t.Alive() {
		return nil, false
	}
	return t, true
}

// edgeDistance is the shortest gap between the bounding extents of a and b.
func edgeDistance(a, b *Unit) float64 {
	ax, bx := a.X, b.X
	ha, hb := a.HalfWidth(), b.HalfWidth()
	if ax < bx {
		return (bx - hb) - (ax + ha)
	}
	return (ax - ha) - (bx + hb)
}

func isInRange(attacker, target *Unit) bool {
	return edgeDistance(attacker, target) <= attacker.AttackRange
}

func (s *Simulator) inCastleRange(u *Unit) bool {
	enemyCastleX := s.CastleX(u.Side.Opponent())
	var nearEdge float64
	if u.Side == Player1 {
		nearEdge = u.X + u.HalfWidth()
	} else {
		nearEdge = u.X - u.HalfWidth()
	}
	return math.Abs(nearEdge-enemyCastleX) <= u.AttackRange
}

// isBlockedByEnemy reports whether a WALK unit has an enemy ahead of it
// closer than the blocking gap.
func (s *Simulator) isBlockedByEnemy(u *Unit, arena *Arena) bool {
	for _, e := range arena.LiveSide(u.Side.Opponent()) {
		if e.State == StateDie {
			continue
		}
		inFront := (u.Side == Player1 && e.X > u.X) || (u.Side == Player2 && e.X < u.X)
		if !inFront {
			continue
		}
		gap := (u.Width+e.Width)/2*0.5 + 30
		if edgeDistance(u, e) < gap {
			return true
		}
	}
	return false
}

func (s *Simulator) clampMovement(u *Unit) {
	if u.Side == Player1 {
		if u.X > s.cfg.StageLength-30 {
			u.X = s.cfg.StageLength - 30
		}
	} else {
		if u.X < 80 {
			u.X = 80
		}
	}
}

// resolveDamage applies the windup-completion damage rule.
func (s *Simulator) resolveDamage(attacker *Unit, arena *Arena, castles [2]*CastleState) {
	if target, ok := s.liveTarget(attacker, arena); ok {
		target.HP -= attacker.AttackDamage
		target.DamageAccumulated += attacker.AttackDamage
		if target.HP <= 0 {
			target.HP = 0
			target.enterState(StateDie)
			castles[attacker.Side].Kills++
			return
		}
		s.applyKnockbackIfThreshold(target)
		return
	}

	if s.inCastleRange(attacker) {
		castles[attacker.Side.Opponent()].Damage(attacker.AttackDamage)
	}
}

func (s *Simulator) applyKnockbackIfThreshold(target *Unit) {
	if target.IsBoss {
		return
	}
	threshold := float64(target.MaxHP) * s.cfg.KnockbackThresholdPct
	if float64(target.DamageAccumulated) < threshold {
		return
	}

	target.DamageAccumulated = 0
	dir := -target.Side.Direction()
	target.X += target.Knockback * dir
	if target.X < 80 {
		target.X = 80
	}
	if target.X > s.cfg.StageLength-30 {
		target.X = s.cfg.StageLength - 30
	}
	target.enterState(StateHitstun)
}

// resolveCollisions pushes apart overlapping same-side units.
func (s *Simulator) resolveCollisions(arena *Arena) {
	for _, side := range [2]Side{Player1, Player2} {
		units := aliveOnly(arena.LiveSide(side))
		for i := 0; i < len(units); i++ {
			for j := i + 1; j < len(units); j++ {
				a, b := units[i], units[j]
				dist := math.Abs(a.X - b.X)
				minDist := (a.Width+b.Width)/2*0.6 + s.cfg.MinSameSideGap
				if dist <= 0 || dist >= minDist {
					continue
				}
				overlap := minDist - dist
				push := overlap / 4
				if a.X < b.X {
					a.X -= push
					b.X += push
				} else {
					a.X += push
					b.X -= push
				}
				s.clampCollision(a)
				s.clampCollision(b)
			}
		}
	}
}

func (s *Simulator) clampCollision(u *Unit) {
	if u.Side == Player1 {
		lo := s.cfg.Player1CastleX + 30
		hi := s.cfg.StageLength - 30
		if u.X < lo {
			u.X = lo
		}
		if u.X > hi {
			u.X = hi
		}
		return
	}
	lo := 80.0
	hi := s.cfg.Player2CastleX - 30
	if u.X < lo {
		u.X = lo
	}
	if u.X > hi {
		u.X = hi
	}
}

// assignTargets recomputes each live unit's target.
func (s *Simulator) assignTargets(arena *Arena) {
	for _, u := range arena.Live() {
		if u.State == StateDie {
			continue
		}

		if target, ok := s.liveTarget(u, arena); ok && isInRange(u, target) {
			continue
		}

		u.TargetID = nil
		searchRange := u.AttackRange + s.cfg.TargetingRangePadding

		var bestFront, bestAny *Unit
		var bestFrontDist, bestAnyDist float64

		for _, e := range arena.LiveSide(u.Side.Opponent()) {
			if e.State == StateDie {
				continue
			}
			d := edgeDistance(u, e)
			if d > searchRange {
				continue
			}

			if bestAny == nil || d < bestAnyDist {
				bestAny, bestAnyDist = e, d
			}

			inFront := (u.Side == Player1 && e.X > u.X) || (u.Side == Player2 && e.X < u.X)
			if inFront && (bestFront == nil || d < bestFrontDist) {
				bestFront, bestFrontDist = e, d
			}
		}

		switch {
		case bestFront != nil:
			id := bestFront.ID
			u.TargetID = &id
		case bestAny != nil:
			id := bestAny.ID
			u.TargetID = &id
		}
	}
}

// cleanup removes units that have lingered in DIE long enough.
func (s *Simulator) cleanup(arena *Arena) {
	for _, u := range arena.Live() {
		if u.State == StateDie && u.StateTimerMs >= s.cfg.DeathLingerMs {
			arena.Remove(u.ID)
		}
	}
}

func (s *Simulator) checkWin(castles [2]*CastleState) WinResult {
	if castles[Player1].HP <= 0 {
		return WinResult{HasWinner: true, Winner: Player2, Reason: "castle_destroyed"}
	}
	if castles[Player2].HP <= 0 {
		return WinResult{HasWinner: true, Winner: Player1, Reason: "castle_destroyed"}
	}
	return WinResult{}
}

func aliveOnly(units []*Unit) []*Unit {
	out := units[:0:0]
	for _, u := range units {
		if u.State != StateDie {
			out = append(out, u)
		}
	}
	return out
}
