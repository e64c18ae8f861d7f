package combat_test

import (
	"testing"

	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/combat"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return c
}

func newCastles(hp int) [2]*combat.CastleState {
	return [2]*combat.CastleState{
		{HP: hp, MaxHP: hp},
		{HP: hp, MaxHP: hp},
	}
}

// TestSpawnUnit_UnknownUnitRejected covers rejecting an unknown unitId.
func TestSpawnUnit_UnknownUnitRejected(t *testing.T) {
	sim := combat.NewSimulator(combat.DefaultConfig(), testCatalog(t))
	arena := combat.NewArena()

	if _, err := sim.SpawnUnit(arena, combat.Player1, "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown unit id")
	}
}

// TestSpawnUnit_PositionsNearOwnCastle checks the spawn inset geometry.
func TestSpawnUnit_PositionsNearOwnCastle(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()

	id1, err := sim.SpawnUnit(arena, combat.Player1, "unitA")
	if err != nil {
		t.Fatalf("spawn player1: %v", err)
	}
	u1, _ := arena.Get(id1)
	if want := cfg.Player1CastleX + cfg.SpawnInsetFromCastle; u1.X != want {
		t.Errorf("player1 spawn x = %v, want %v", u1.X, want)
	}

	id2, err := sim.SpawnUnit(arena, combat.Player2, "unitA")
	if err != nil {
		t.Fatalf("spawn player2: %v", err)
	}
	u2, _ := arena.Get(id2)
	if want := cfg.Player2CastleX - cfg.SpawnInsetFromCastle; u2.X != want {
		t.Errorf("player2 spawn x = %v, want %v", u2.X, want)
	}
}

// TestUpdate_SpawnTransitionsToWalk verifies the SPAWN -> WALK timer.
func TestUpdate_SpawnTransitionsToWalk(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	id, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")

	sim.Update(cfg.SpawnToWalkMs-50, arena, castles)
	u, _ := arena.Get(id)
	if u.State != combat.StateSpawn {
		t.Fatalf("expected still SPAWN before threshold, got %s", u.State)
	}

	sim.Update(100, arena, castles)
	u, _ = arena.Get(id)
	if u.State != combat.StateWalk {
		t.Fatalf("expected WALK after threshold, got %s", u.State)
	}
}

// TestUpdate_LethalDamageKillsAndSkipsCastleDamage covers the scenario S1
// style one-shot kill: a single overwhelming attack kills a unit and must
// not also damage the castle in the same windup resolution, since the
// target was still live (not lost) when damage was applied.
func TestUpdate_LethalDamageKillsAndSkipsCastleDamage(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	attackerID, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")
	defenderID, _ := sim.SpawnUnit(arena, combat.Player2, "unitA")

	attacker, _ := arena.Get(attackerID)
	defender, _ := arena.Get(defenderID)
	// place adjacent and in range at mid-lane, out of reach of either castle,
	// and skip past SPAWN into WALK manually for the test.
	attacker.State = combat.StateWalk
	defender.State = combat.StateWalk
	attacker.X = cfg.StageLength / 2
	defender.X = attacker.X + attacker.AttackRange/2

	// advance enough ticks to enter windup, then complete windup.
	for i := 0; i < 50; i++ {
		sim.Update(50, arena, castles)
		a, _ := arena.Get(attackerID)
		if a.State == combat.StateAttackCooldown {
			break
		}
	}

	d, ok := arena.Get(defenderID)
	if !ok {
		t.Fatal("defender unexpectedly removed from arena")
	}
	if d.HP != 0 {
		t.Fatalf("expected defender HP 0 after lethal hit, got %d", d.HP)
	}
	if castles[combat.Player2].HP != 5000 {
		t.Errorf("castle should be untouched when the target absorbed the hit, got HP %d", castles[combat.Player2].HP)
	}
	if castles[combat.Player1].Kills != 1 {
		t.Errorf("expected attacker side to record 1 kill, got %d", castles[combat.Player1].Kills)
	}
}

// TestUpdate_CastleDamageWhenNoTarget covers damaging the castle when a
// unit is in range of it and has no live target.
func TestUpdate_CastleDamageWhenNoTarget(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	id, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")
	u, _ := arena.Get(id)
	u.State = combat.StateWalk
	u.X = cfg.Player2CastleX - u.AttackRange/2

	for i := 0; i < 50; i++ {
		sim.Update(50, arena, castles)
		a, _ := arena.Get(id)
		if a.State == combat.StateAttackCooldown {
			break
		}
	}

	if castles[combat.Player2].HP >= 5000 {
		t.Errorf("expected castle to take damage, got HP %d", castles[combat.Player2].HP)
	}
}

// TestUpdate_WinDetectedOnCastleDestroyed covers the win condition.
func TestUpdate_WinDetectedOnCastleDestroyed(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)
	castles[combat.Player2].HP = 0

	result := sim.Update(50, arena, castles)
	if !result.HasWinner {
		t.Fatal("expected a winner when a castle is at 0 HP")
	}
	if result.Winner != combat.Player1 {
		t.Errorf("expected Player1 to win, got %v", result.Winner)
	}
	if result.Reason != "castle_destroyed" {
		t.Errorf("expected reason castle_destroyed, got %q", result.Reason)
	}
}

// TestResolveCollisions_PushesOverlappingSameSideUnitsApart.
func TestResolveCollisions_PushesOverlappingSameSideUnitsApart(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	id1, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")
	id2, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")

	u1, _ := arena.Get(id1)
	u2, _ := arena.Get(id2)
	u1.State = combat.StateWalk
	u2.State = combat.StateWalk
	mid := (u1.X + u2.X) / 2
	u1.X = mid - 1
	u2.X = mid + 1

	sim.Update(50, arena, castles)

	a, _ := arena.Get(id1)
	b, _ := arena.Get(id2)
	if a.X >= b.X {
		t.Errorf("expected units to separate in spawn order, got a.X=%v b.X=%v", a.X, b.X)
	}
	if b.X-a.X < 1 {
		t.Error("expected units to be pushed apart")
	}
}

// TestApplyKnockbackIfThreshold_CrossingThresholdTriggersHitstunAndDisplacement
// covers knockback: once a unit's cumulative unrecovered damage reaches
// maxHp*0.15, it is knocked away from its attacker, enters HITSTUN, and its
// accumulated damage resets.
func TestApplyKnockbackIfThreshold_CrossingThresholdTriggersHitstunAndDisplacement(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	attackerID, _ := sim.SpawnUnit(arena, combat.Player1, "knight")
	defenderID, _ := sim.SpawnUnit(arena, combat.Player2, "militia")

	attacker, _ := arena.Get(attackerID)
	defender, _ := arena.Get(defenderID)
	attacker.State = combat.StateWalk
	defender.State = combat.StateWalk
	defender.X = attacker.X + attacker.AttackRange/2
	startX := defender.X

	threshold := float64(defender.MaxHP) * cfg.KnockbackThresholdPct
	if float64(attacker.AttackDamage) < threshold {
		t.Fatalf("test fixture invalid: attack damage %d does not cross threshold %v in one hit", attacker.AttackDamage, threshold)
	}

	for i := 0; i < 50; i++ {
		sim.Update(50, arena, castles)
		a, _ := arena.Get(attackerID)
		if a.State == combat.StateAttackCooldown {
			break
		}
	}

	d, ok := arena.Get(defenderID)
	if !ok {
		t.Fatal("defender unexpectedly removed from arena")
	}
	if d.HP <= 0 {
		t.Fatalf("test fixture invalid: defender died instead of surviving the hit, HP=%d", d.HP)
	}
	if d.State != combat.StateHitstun {
		t.Fatalf("expected defender to enter HITSTUN once accumulated damage crossed the threshold, got %s", d.State)
	}
	if d.DamageAccumulated != 0 {
		t.Errorf("expected DamageAccumulated to reset to 0 after knockback, got %d", d.DamageAccumulated)
	}
	if d.X <= startX {
		t.Errorf("expected defender to be displaced away from the attacker, startX=%v newX=%v", startX, d.X)
	}
}

// TestCleanup_RemovesUnitsAfterDeathLinger ensures DIE units persist for
// DeathLingerMs before removal from the arena.
func TestCleanup_RemovesUnitsAfterDeathLinger(t *testing.T) {
	cfg := combat.DefaultConfig()
	sim := combat.NewSimulator(cfg, testCatalog(t))
	arena := combat.NewArena()
	castles := newCastles(5000)

	id, _ := sim.SpawnUnit(arena, combat.Player1, "unitA")
	u, _ := arena.Get(id)
	u.State = combat.StateDie

	sim.Update(cfg.DeathLingerMs-50, arena, castles)
	if _, ok := arena.Get(id); !ok {
		t.Fatal("unit removed before death linger elapsed")
	}

	sim.Update(100, arena, castles)
	if _, ok := arena.Get(id); ok {
		t.Fatal("expected unit removed after death linger elapsed")
	}
}
