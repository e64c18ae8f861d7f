package room

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/combat"
	"github.com/lucas/castlerush/internal/config"
	"github.com/lucas/castlerush/internal/room/commands"
)

type fakeBroadcaster struct {
	broadcasts []Envelope
	direct     []directMsg
}

type directMsg struct {
	sessionID uuid.UUID
	envelope  Envelope
}

func (f *fakeBroadcaster) BroadcastToRoom(roomID uuid.UUID, message Envelope) {
	f.broadcasts = append(f.broadcasts, message)
}

func (f *fakeBroadcaster) SendToSession(roomID uuid.UUID, sessionID uuid.UUID, message Envelope) {
	f.direct = append(f.direct, directMsg{sessionID: sessionID, envelope: message})
}

func (f *fakeBroadcaster) lastOfType(msgType string) (Envelope, bool) {
	for i := len(f.broadcasts) - 1; i >= 0; i-- {
		if f.broadcasts[i].Type == msgType {
			return f.broadcasts[i], true
		}
	}
	return Envelope{}, false
}

func (f *fakeBroadcaster) countOfType(msgType string) int {
	n := 0
	for _, b := range f.broadcasts {
		if b.Type == msgType {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) lastErrorTo(sessionID uuid.UUID) (ErrorPayload, bool) {
	for i := len(f.direct) - 1; i >= 0; i-- {
		d := f.direct[i]
		if d.sessionID == sessionID && d.envelope.Type == "error" {
			return d.envelope.Data.(ErrorPayload), true
		}
	}
	return ErrorPayload{}, false
}

type fakeSink struct {
	saved chan MatchRecord
}

func (f *fakeSink) SaveMatch(ctx context.Context, record MatchRecord) error {
	f.saved <- record
	return nil
}

func newTestRoom(t *testing.T, sink Sink) (*Room, *fakeBroadcaster) {
	t.Helper()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}

	registry := NewHandlerRegistry()
	commands.RegisterAllHandlers(registry)

	bc := &fakeBroadcaster{}
	cfg := config.Default()

	r := NewRoom(uuid.New(), cat, cfg.Balance, cfg.Room, registry, bc, sink, nil)
	return r, bc
}

func joinDirect(t *testing.T, r *Room, name string, deck []string) (uuid.UUID, PlayerView) {
	t.Helper()
	sid := uuid.New()
	reply := make(chan inboundReply, 1)
	r.handleJoin(inbound{kind: inboundJoin, sessionID: sid, displayName: name, deck: deck, reply: reply})
	res := <-reply
	if res.err != nil {
		t.Fatalf("join %s: %v", name, res.err)
	}
	return sid, res.player
}

func submitDirect(r *Room, sid uuid.UUID, cmdType CommandType, unitID string) {
	r.handleGameplayCommand(inbound{kind: inboundCommand, sessionID: sid, cmdType: cmdType, unitID: unitID})
}

func TestHandleJoin_AssignsSidesInOrder(t *testing.T) {
	r, bc := newTestRoom(t, nil)

	_, v1 := joinDirect(t, r, "Alice", []string{"militia", "archer"})
	if v1.Side != combat.Player1 {
		t.Errorf("first joiner side = %v, want Player1", v1.Side)
	}

	_, v2 := joinDirect(t, r, "Bob", []string{"knight"})
	if v2.Side != combat.Player2 {
		t.Errorf("second joiner side = %v, want Player2", v2.Side)
	}

	if len(r.order) != 2 {
		t.Fatalf("room has %d players, want 2", len(r.order))
	}
	env, ok := bc.lastOfType("all_players")
	if !ok {
		t.Fatal("expected an all_players broadcast")
	}
	payload := env.Data.(AllPlayersPayload)
	if len(payload.Players) != 2 {
		t.Errorf("all_players has %d entries, want 2", len(payload.Players))
	}
}

func TestHandleJoin_RejectsThirdPlayer(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	joinDirect(t, r, "Alice", nil)
	joinDirect(t, r, "Bob", nil)

	reply := make(chan inboundReply, 1)
	r.handleJoin(inbound{kind: inboundJoin, sessionID: uuid.New(), displayName: "Carol", reply: reply})
	res := <-reply

	ce, ok := res.err.(*CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T (%v)", res.err, res.err)
	}
	if ce.Code != ErrGameNotPlaying {
		t.Errorf("error code = %v, want %v", ce.Code, ErrGameNotPlaying)
	}
}

func TestHandleJoin_DeckIsFilteredAndCapped(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	deck := []string{"militia", "archer", "knight", "mage", "golem", "dragon", "unitA", "bogus1", "bogus2"}

	sid, _ := joinDirect(t, r, "Alice", deck)
	player := r.bySession[sid]

	if len(player.Deck) != r.maxDeckSize {
		t.Fatalf("deck length = %d, want %d", len(player.Deck), r.maxDeckSize)
	}
	for _, id := range player.Deck {
		if !r.catalog.IsValid(id) {
			t.Errorf("deck contains invalid unit %q", id)
		}
	}
}

func TestMaybeStartCountdown_RequiresBothPlayersReady(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", []string{"militia"})
	sid2, _ := joinDirect(t, r, "Bob", []string{"militia"})

	submitDirect(r, sid1, CommandReady, "")
	if r.phase != PhaseWaiting {
		t.Fatalf("phase = %v after one ready, want waiting", r.phase)
	}

	submitDirect(r, sid2, CommandReady, "")
	defer r.stopTickers()

	if r.phase != PhaseCountdown {
		t.Fatalf("phase = %v after both ready, want countdown", r.phase)
	}
	if r.countdown != r.countdownSeconds {
		t.Errorf("countdown = %d, want %d", r.countdown, r.countdownSeconds)
	}
	env, ok := bc.lastOfType("phase_change")
	if !ok {
		t.Fatal("expected a phase_change broadcast")
	}
	if env.Data.(PhaseChangePayload).Phase != PhaseCountdown {
		t.Errorf("phase_change payload phase = %v, want countdown", env.Data.(PhaseChangePayload).Phase)
	}
}

func TestCountdownTicks_EmitExactlyThreeUpdatesThenPlaying(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", []string{"militia"})
	sid2, _ := joinDirect(t, r, "Bob", []string{"militia"})
	submitDirect(r, sid1, CommandReady, "")
	submitDirect(r, sid2, CommandReady, "")
	defer r.stopTickers()

	for i := 0; i < r.countdownSeconds; i++ {
		r.onCountdownTick()
	}

	if got := bc.countOfType("countdown_update"); got != 3 {
		t.Fatalf("countdown_update broadcasts = %d, want 3", got)
	}
	var seen []int
	for _, env := range bc.broadcasts {
		if env.Type == "countdown_update" {
			seen = append(seen, env.Data.(CountdownUpdatePayload).Countdown)
		}
	}
	want := []int{3, 2, 1}
	for i, v := range want {
		if seen[i] != v {
			t.Errorf("countdown_update[%d] = %d, want %d", i, seen[i], v)
		}
	}

	if r.phase != PhasePlaying {
		t.Fatalf("phase = %v after countdown exhausted, want playing", r.phase)
	}
	env, ok := bc.lastOfType("phase_change")
	if !ok || env.Data.(PhaseChangePayload).Phase != PhasePlaying {
		t.Fatal("expected a phase_change{playing} broadcast after the third tick")
	}
}

func TestSummon_ValidationChain(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", []string{"militia"})
	joinDirect(t, r, "Bob", []string{"militia"})

	submitDirect(r, sid1, CommandSummon, "militia")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrGameNotPlaying {
		t.Fatalf("expected GAME_NOT_PLAYING before playing phase, got %+v ok=%v", p, ok)
	}

	r.phase = PhasePlaying

	submitDirect(r, sid1, CommandSummon, "bogus")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrInvalidUnit {
		t.Fatalf("expected INVALID_UNIT, got %+v ok=%v", p, ok)
	}

	submitDirect(r, sid1, CommandSummon, "dragon")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrUnitNotInDeck {
		t.Fatalf("expected UNIT_NOT_IN_DECK, got %+v ok=%v", p, ok)
	}

	bc.direct = nil // forget the earlier rejections
	submitDirect(r, sid1, CommandSummon, "militia")
	if _, ok := bc.lastErrorTo(sid1); ok {
		t.Fatal("expected first militia summon to succeed")
	}

	submitDirect(r, sid1, CommandSummon, "militia")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrCooldown {
		t.Fatalf("expected COOLDOWN on immediate re-summon, got %+v ok=%v", p, ok)
	}

	player := r.bySession[sid1]
	player.Cost = 0
	player.SpawnCooldowns["militia"] = 0

	submitDirect(r, sid1, CommandSummon, "militia")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrInsufficientCost {
		t.Fatalf("expected INSUFFICIENT_COST with zero cost, got %+v ok=%v", p, ok)
	}
}

func TestSummon_SuccessSpendsCostAndBroadcastsUnitSpawned(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", []string{"militia"})
	joinDirect(t, r, "Bob", []string{"militia"})
	r.phase = PhasePlaying

	player := r.bySession[sid1]
	startCost := player.Cost

	submitDirect(r, sid1, CommandSummon, "militia")

	def, _ := r.catalog.Lookup("militia")
	if player.Cost != startCost-float64(def.Cost) {
		t.Errorf("cost after summon = %v, want %v", player.Cost, startCost-float64(def.Cost))
	}
	if player.SpawnCooldowns["militia"] <= 0 {
		t.Error("expected a positive spawn cooldown after summon")
	}

	env, ok := bc.lastOfType("unit_spawned")
	if !ok {
		t.Fatal("expected a unit_spawned broadcast")
	}
	view := env.Data.(combat.UnitView)
	if view.Side != combat.Player1 {
		t.Errorf("spawned unit side = %v, want Player1", view.Side)
	}
}

func TestUpgradeCost_RequiresAffordabilityThenAdvancesLevel(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", nil)
	joinDirect(t, r, "Bob", nil)
	r.phase = PhasePlaying

	submitDirect(r, sid1, CommandUpgradeCost, "")
	if p, ok := bc.lastErrorTo(sid1); !ok || p.Code != ErrCannotUpgrade {
		t.Fatalf("expected CANNOT_UPGRADE at initial cost, got %+v ok=%v", p, ok)
	}

	player := r.bySession[sid1]
	player.Cost = 600

	bc.direct = nil // forget the earlier rejection
	submitDirect(r, sid1, CommandUpgradeCost, "")
	if _, ok := bc.lastErrorTo(sid1); ok {
		t.Fatal("expected upgrade to succeed with sufficient cost")
	}
	if player.CostLevel != 2 {
		t.Errorf("cost level = %d, want 2", player.CostLevel)
	}
	if player.Cost != 100 {
		t.Errorf("cost after upgrade = %v, want 100", player.Cost)
	}
	if player.MaxCost != 2500 {
		t.Errorf("max cost after upgrade = %v, want 2500", player.MaxCost)
	}
}

func TestHandleLeave_DuringPlayingAwardsOpponentTheWin(t *testing.T) {
	r, bc := newTestRoom(t, nil)
	sid1, _ := joinDirect(t, r, "Alice", nil)
	sid2, _ := joinDirect(t, r, "Bob", nil)
	r.phase = PhasePlaying

	r.handleLeave(inbound{kind: inboundLeave, sessionID: sid1})

	if r.phase != PhaseFinished {
		t.Fatalf("phase = %v after disconnect, want finished", r.phase)
	}
	if r.winnerID != sid2 {
		t.Errorf("winnerID = %v, want remaining player %v", r.winnerID, sid2)
	}
	if r.winReason != "opponent_disconnected" {
		t.Errorf("winReason = %q, want opponent_disconnected", r.winReason)
	}
	env, ok := bc.lastOfType("phase_change")
	if !ok {
		t.Fatal("expected a phase_change broadcast")
	}
	payload := env.Data.(PhaseChangePayload)
	if payload.Phase != PhaseFinished || payload.WinnerID != sid2.String() {
		t.Errorf("phase_change payload = %+v, want finished/winner %v", payload, sid2)
	}
}

func TestFinish_PersistsMatchRecordAsynchronously(t *testing.T) {
	sink := &fakeSink{saved: make(chan MatchRecord, 1)}
	r, _ := newTestRoom(t, sink)

	sid1, _ := joinDirect(t, r, "Alice", []string{"militia", "archer"})
	sid2, _ := joinDirect(t, r, "Bob", []string{"knight"})
	r.phase = PhasePlaying
	r.gameTime = 45500

	p1 := r.bySession[sid1]
	p2 := r.bySession[sid2]
	p1.Castle.Kills = 3
	p2.Castle.HP = 0

	r.finish(p1, "castle_destroyed")

	select {
	case record := <-sink.saved:
		if record.WinnerPlayerNum != 1 {
			t.Errorf("winner player num = %d, want 1", record.WinnerPlayerNum)
		}
		if record.WinReason != "castle_destroyed" {
			t.Errorf("win reason = %q, want castle_destroyed", record.WinReason)
		}
		if record.BattleDuration != 45 {
			t.Errorf("battle duration = %d, want 45", record.BattleDuration)
		}
		if record.Player1Kills != 3 {
			t.Errorf("player1 kills = %d, want 3", record.Player1Kills)
		}
		if record.Player2CastleHP != 0 {
			t.Errorf("player2 castle hp = %d, want 0", record.Player2CastleHP)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for match record to be persisted")
	}
}

func TestStateView_RendersEmptyWinnerIDWhenUnset(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	joinDirect(t, r, "Alice", []string{"militia"})

	state := r.stateView()
	if state.WinnerID != "" {
		t.Errorf("winnerID = %q, want empty before a winner is set", state.WinnerID)
	}
	if len(state.Players) != 1 {
		t.Errorf("state has %d players, want 1", len(state.Players))
	}
}

func TestValidateDeck_FiltersUnknownUnitsAndCaps(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	deck := []string{"militia", "bogus", "archer", "knight", "mage", "golem", "dragon", "unitA"}

	got := validateDeck(deck, cat, 3)
	if len(got) != 3 {
		t.Fatalf("validated deck length = %d, want 3", len(got))
	}
	for _, id := range got {
		if id == "bogus" {
			t.Error("validated deck retained an unknown unit id")
		}
	}
}
