// Package room implements the match lifecycle: readiness, countdown,
// tick pump, command validation and dispatch, disconnect adjudication,
// and result emission. Each Room is a single-threaded logical actor: all
// state mutation happens on one goroutine that serially drains an inbox
// channel and two phase-scoped tickers, rather than guarding shared
// state with a mutex.
package room

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/combat"
	"github.com/lucas/castlerush/internal/config"
)

// Phase is the room's position in the match lifecycle.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

const maxPlayers = 2

// Room is one authoritative match: two Players, a Combat Arena, and the
// phase/tick machinery driving them.
type Room struct {
	ID        uuid.UUID
	createdAt time.Time

	phase       Phase
	gameTime    float64
	countdown   int
	stageLength float64
	winnerID    uuid.UUID
	winReason   string

	order     []*Player
	bySession map[uuid.UUID]*Player

	arena *combat.Arena

	catalog   *catalog.Catalog
	resources *ResourceSystem
	combatSim *combat.Simulator
	registry  *HandlerRegistry

	broadcaster Broadcaster
	sink        Sink
	listing     Registry

	maxDeckSize       int
	initialCastleHP   int
	tickInterval      time.Duration
	countdownInterval time.Duration
	countdownSeconds  int

	tickTicker      *time.Ticker
	countdownTicker *time.Ticker
	lastTickAt      time.Time

	inbox chan inbound
	done  chan struct{}
}

type inboundKind int

const (
	inboundJoin inboundKind = iota
	inboundLeave
	inboundCommand
	inboundSnapshot
)

type inbound struct {
	kind inboundKind

	sessionID        uuid.UUID
	externalPlayerID string
	displayName      string
	deck             []string

	cmdType CommandType
	unitID  string

	reply chan inboundReply
}

type inboundReply struct {
	player PlayerView
	state  StateView
	err    error
}

// NewRoom constructs a Room bound to its collaborators. registry is shared,
// stateless, and built once at process start in main.go.
func NewRoom(id uuid.UUID, cat *catalog.Catalog, balance config.BalanceConfig, roomCfg config.RoomConfig, registry *HandlerRegistry, broadcaster Broadcaster, sink Sink, listing Registry) *Room {
	combatCfg := combat.Config{
		StageLength:           roomCfg.StageLength,
		Player1CastleX:        roomCfg.Player1CastleX,
		Player2CastleX:        roomCfg.Player2CastleX,
		MinSameSideGap:        balance.Combat.MinSameSideGap,
		SpawnToWalkMs:         float64(balance.Combat.SpawnToWalkMs),
		HitstunMs:             float64(balance.Combat.HitstunMs),
		DeathLingerMs:         float64(balance.Combat.DeathLingerMs),
		KnockbackThresholdPct: balance.Combat.KnockbackThresholdPct,
		TargetingRangePadding: balance.Combat.TargetingRangePadding,
		SpawnInsetFromCastle:  balance.Combat.SpawnInsetFromCastle,
	}

	return &Room{
		ID:                id,
		createdAt:         time.Now(),
		phase:             PhaseWaiting,
		stageLength:       roomCfg.StageLength,
		order:             make([]*Player, 0, maxPlayers),
		bySession:         make(map[uuid.UUID]*Player),
		arena:             combat.NewArena(),
		catalog:           cat,
		resources:         NewResourceSystem(balance.Resource),
		combatSim:         combat.NewSimulator(combatCfg, cat),
		registry:          registry,
		broadcaster:       broadcaster,
		sink:              sink,
		listing:           listing,
		maxDeckSize:       roomCfg.MaxDeckSize,
		initialCastleHP:   balance.Resource.InitialCastleHP,
		tickInterval:      roomCfg.TickInterval,
		countdownInterval: time.Second,
		countdownSeconds:  roomCfg.CountdownSeconds,
		inbox:             make(chan inbound, 32),
		done:              make(chan struct{}),
	}
}

// Run drains the inbox and tickers until the room finishes, ctx is
// cancelled, or the room holds no players in the waiting phase after
// handling a message. Callers should `go room.Run(ctx)` once per room.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)

	for {
		var tickC <-chan time.Time
		var countdownC <-chan time.Time
		if r.tickTicker != nil {
			tickC = r.tickTicker.C
		}
		if r.countdownTicker != nil {
			countdownC = r.countdownTicker.C
		}

		select {
		case <-ctx.Done():
			r.stopTickers()
			return
		case msg, ok := <-r.inbox:
			if !ok {
				return
			}
			r.handle(msg)
		case now := <-tickC:
			r.onPlayingTick(now)
		case <-countdownC:
			r.onCountdownTick()
		}

		if r.phase == PhaseFinished {
			r.stopTickers()
			return
		}
		if r.phase == PhaseWaiting && len(r.order) == 0 {
			return
		}
	}
}

// Done reports when the room's actor loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) stopTickers() {
	if r.tickTicker != nil {
		r.tickTicker.Stop()
		r.tickTicker = nil
	}
	if r.countdownTicker != nil {
		r.countdownTicker.Stop()
		r.countdownTicker = nil
	}
}

func (r *Room) handle(msg inbound) {
	switch msg.kind {
	case inboundJoin:
		r.handleJoin(msg)
	case inboundLeave:
		r.handleLeave(msg)
	case inboundCommand:
		r.handleGameplayCommand(msg)
	case inboundSnapshot:
		if msg.reply != nil {
			msg.reply <- inboundReply{state: r.stateView()}
		}
	}
}

// Join enqueues a join request and blocks for the reply: room not full,
// phase waiting, deck validated and capped at the configured deck size.
func (r *Room) Join(sessionID uuid.UUID, externalPlayerID, displayName string, deck []string) (PlayerView, error) {
	reply := make(chan inboundReply, 1)
	r.inbox <- inbound{
		kind:             inboundJoin,
		sessionID:        sessionID,
		externalPlayerID: externalPlayerID,
		displayName:      displayName,
		deck:             deck,
		reply:            reply,
	}
	res := <-reply
	return res.player, res.err
}

func (r *Room) handleJoin(msg inbound) {
	var err error
	defer func() {
		if msg.reply != nil {
			player := PlayerView{}
			if p, ok := r.bySession[msg.sessionID]; ok {
				player = p.View()
			}
			msg.reply <- inboundReply{player: player, err: err}
		}
	}()

	if len(r.order) >= maxPlayers || r.phase != PhaseWaiting {
		err = NewCommandError(ErrGameNotPlaying, "room is full or already started")
		return
	}

	side := combat.Player1
	if len(r.order) == 1 {
		side = combat.Player2
	}

	deck := validateDeck(msg.deck, r.catalog, r.maxDeckSize)
	player := NewPlayer(msg.sessionID, msg.externalPlayerID, msg.displayName, side, deck, r.resources, r.initialCastleHP)

	r.order = append(r.order, player)
	r.bySession[msg.sessionID] = player

	r.broadcast("player_joined", player.View())
	r.broadcast("all_players", AllPlayersPayload{Players: r.playerViews()})
	r.updateListing()
}

// Leave enqueues a disconnect notification. It does not wait for a reply:
// leave is transport-signaled, not a validated client command.
func (r *Room) Leave(sessionID uuid.UUID) {
	r.inbox <- inbound{kind: inboundLeave, sessionID: sessionID}
}

func (r *Room) handleLeave(msg inbound) {
	player, ok := r.bySession[msg.sessionID]
	if !ok {
		return
	}

	if r.phase == PhaseCountdown || r.phase == PhasePlaying {
		opponent := r.opponentOf(player)
		if opponent != nil {
			r.finish(opponent, "opponent_disconnected")
		}
	}

	delete(r.bySession, msg.sessionID)
	for i, p := range r.order {
		if p.SessionID == msg.sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if len(r.order) > 0 {
		r.updateListing()
	} else if r.listing != nil {
		r.listing.RemoveRoom(r.ID)
	}
}

// Submit enqueues a validated gameplay command (ready/summon/upgrade_cost).
// Errors are reported to the offending client via Broadcaster.SendToSession,
// never returned here and never broadcast to the rest of the room.
func (r *Room) Submit(sessionID uuid.UUID, cmdType CommandType, unitID string) {
	r.inbox <- inbound{kind: inboundCommand, sessionID: sessionID, cmdType: cmdType, unitID: unitID}
}

func (r *Room) handleGameplayCommand(msg inbound) {
	player, ok := r.bySession[msg.sessionID]
	if !ok {
		return
	}

	handler, ok := r.registry.Get(msg.cmdType)
	if !ok {
		return
	}

	ctx := &CommandContext{Room: r, Player: player, UnitID: msg.unitID}

	if err := handler.Validate(ctx); err != nil {
		r.sendError(msg.sessionID, err)
		return
	}
	if err := handler.Process(ctx); err != nil {
		r.sendError(msg.sessionID, err)
		return
	}

	switch msg.cmdType {
	case CommandReady:
		r.maybeStartCountdown()
	case CommandSummon:
		if ctx.SpawnedUnitID != nil {
			if id, err := combat.ParseID(*ctx.SpawnedUnitID); err == nil {
				if u, ok := r.arena.Get(id); ok {
					r.broadcast("unit_spawned", u.View())
				}
			}
		}
	}
}

func (r *Room) sendError(sessionID uuid.UUID, err error) {
	code := ErrorCode(ErrSpawnFailed)
	msg := err.Error()
	if ce, ok := err.(*CommandError); ok {
		code = ce.Code
		msg = ce.Message
	}
	r.broadcaster.SendToSession(r.ID, sessionID, Envelope{Type: "error", Data: ErrorPayload{Code: code, Message: msg}})
}

func (r *Room) maybeStartCountdown() {
	if r.phase != PhaseWaiting || len(r.order) != maxPlayers {
		return
	}
	for _, p := range r.order {
		if !p.Ready {
			return
		}
	}
	r.enterCountdown()
}

func (r *Room) enterCountdown() {
	r.phase = PhaseCountdown
	r.countdown = r.countdownSeconds
	r.broadcast("phase_change", PhaseChangePayload{Phase: PhaseCountdown})
	r.updateListing()
	r.countdownTicker = time.NewTicker(r.countdownInterval)
}

func (r *Room) onCountdownTick() {
	r.broadcast("countdown_update", CountdownUpdatePayload{Countdown: r.countdown})
	r.countdown--
	if r.countdown <= 0 {
		r.countdownTicker.Stop()
		r.countdownTicker = nil
		r.enterPlaying()
	}
}

func (r *Room) enterPlaying() {
	r.phase = PhasePlaying
	r.lastTickAt = time.Now()
	r.broadcast("phase_change", PhaseChangePayload{Phase: PhasePlaying})
	r.updateListing()
	r.tickTicker = time.NewTicker(r.tickInterval)
}

// onPlayingTick implements the fixed ordering: resource regen,
// cooldown decay, combat update, then broadcasts.
func (r *Room) onPlayingTick(now time.Time) {
	dtMs := float64(now.Sub(r.lastTickAt).Milliseconds())
	r.lastTickAt = now
	r.gameTime += dtMs

	var castles [2]*combat.CastleState
	for _, p := range r.order {
		r.resources.Update(p, dtMs)
		p.TickCooldowns(dtMs)
		castles[p.Side] = &p.Castle
	}

	result := r.combatSim.Update(dtMs, r.arena, castles)

	r.broadcast("units_sync", UnitsSyncPayload{Units: r.unitViews()})
	r.broadcast("players_sync", PlayersSyncPayload{Players: r.playerSyncViews()})

	if result.HasWinner {
		winner := r.playerBySide(result.Winner)
		if winner != nil {
			r.finish(winner, result.Reason)
		}
	}
}

func (r *Room) finish(winner *Player, reason string) {
	r.phase = PhaseFinished
	r.winnerID = winner.SessionID
	r.winReason = reason
	r.stopTickers()

	r.broadcast("phase_change", PhaseChangePayload{
		Phase:     PhaseFinished,
		WinnerID:  winner.SessionID.String(),
		WinReason: reason,
	})

	if r.listing != nil {
		r.listing.RemoveRoom(r.ID)
	}

	r.persistResult()
}

// persistResult hands the scoreboard to the Result Sink Adapter
// asynchronously; failures are logged but never block the room.
func (r *Room) persistResult() {
	if r.sink == nil || len(r.order) != maxPlayers {
		return
	}
	record := r.buildMatchRecord()
	sink := r.sink
	roomID := r.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.SaveMatch(ctx, record); err != nil {
			log.Printf("room %s: failed to persist match result: %v", roomID, err)
		}
	}()
}

func (r *Room) buildMatchRecord() MatchRecord {
	p1, p2 := r.order[0], r.order[1]
	winnerNum := 1
	if r.winnerID == p2.SessionID {
		winnerNum = 2
	}

	return MatchRecord{
		Player1ID:       p1.ExternalPlayerID,
		Player2ID:       p2.ExternalPlayerID,
		Player1Name:     p1.DisplayName,
		Player2Name:     p2.DisplayName,
		Player1Deck:     append([]string{}, p1.Deck...),
		Player2Deck:     append([]string{}, p2.Deck...),
		WinnerPlayerNum: winnerNum,
		Player1CastleHP: p1.Castle.HP,
		Player2CastleHP: p2.Castle.HP,
		Player1Kills:    p1.Castle.Kills,
		Player2Kills:    p2.Castle.Kills,
		BattleDuration:  int(math.Floor(r.gameTime / 1000)),
		WinReason:       reasonOrDefault(r.winReason),
	}
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "unknown"
	}
	return reason
}

// Snapshot returns the replicated room state object, read safely via
// the actor's inbox rather than a lock. Once Run has exited no goroutine
// writes the state any more, so it is then read directly.
func (r *Room) Snapshot() StateView {
	reply := make(chan inboundReply, 1)
	select {
	case r.inbox <- inbound{kind: inboundSnapshot, reply: reply}:
	case <-r.done:
		return r.stateView()
	}
	select {
	case res := <-reply:
		return res.state
	case <-r.done:
		return r.stateView()
	}
}

func (r *Room) stateView() StateView {
	players := make(map[string]PlayerView, len(r.order))
	for _, p := range r.order {
		players[p.SessionID.String()] = p.View()
	}

	units := make(map[string]combat.UnitView)
	for _, u := range r.arena.Live() {
		units[u.ID.String()] = u.View()
	}

	winnerID := ""
	if r.winnerID != uuid.Nil {
		winnerID = r.winnerID.String()
	}

	return StateView{
		Phase:       r.phase,
		GameTime:    r.gameTime,
		Countdown:   r.countdown,
		StageLength: r.stageLength,
		Players:     players,
		Units:       units,
		WinnerID:    winnerID,
		WinReason:   r.winReason,
	}
}

// Phase returns the room's current phase (for CommandHandler.Validate).
func (r *Room) Phase() Phase {
	return r.phase
}

// Catalog returns the shared read-only unit catalog.
func (r *Room) Catalog() *catalog.Catalog {
	return r.catalog
}

// Resources returns the room's resource system.
func (r *Room) Resources() *ResourceSystem {
	return r.resources
}

// SpawnUnit delegates to the combat simulator for player's side.
func (r *Room) SpawnUnit(player *Player, unitID string) (combat.ID, error) {
	return r.combatSim.SpawnUnit(r.arena, player.Side, unitID)
}

func (r *Room) playerBySide(side combat.Side) *Player {
	for _, p := range r.order {
		if p.Side == side {
			return p
		}
	}
	return nil
}

func (r *Room) opponentOf(p *Player) *Player {
	for _, other := range r.order {
		if other.SessionID != p.SessionID {
			return other
		}
	}
	return nil
}

func (r *Room) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.order))
	for _, p := range r.order {
		views = append(views, p.View())
	}
	return views
}

func (r *Room) playerSyncViews() []PlayersSyncView {
	views := make([]PlayersSyncView, 0, len(r.order))
	for _, p := range r.order {
		views = append(views, p.SyncView())
	}
	return views
}

func (r *Room) unitViews() []combat.UnitView {
	live := r.arena.Live()
	views := make([]combat.UnitView, 0, len(live))
	for _, u := range live {
		views = append(views, u.View())
	}
	return views
}

func (r *Room) broadcast(msgType string, data interface{}) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.BroadcastToRoom(r.ID, Envelope{Type: msgType, Data: data})
}

// updateListing pushes the room's listing metadata: status, host display
// name, a half-length preview of the host's deck (to preserve some
// secrecy), and creation time.
func (r *Room) updateListing() {
	if r.listing == nil || len(r.order) == 0 {
		return
	}
	host := r.order[0]
	previewLen := (len(host.Deck) + 1) / 2
	if previewLen > len(host.Deck) {
		previewLen = len(host.Deck)
	}

	r.listing.UpdateRoom(RoomMeta{
		RoomID:          r.ID,
		Status:          r.phase,
		PlayerCount:     len(r.order),
		HostName:        host.DisplayName,
		HostDeckPreview: append([]string{}, host.Deck[:previewLen]...),
		CreatedAt:       r.createdAt,
	})
}

// validateDeck keeps only catalog-valid unit ids, capped at maxSize.
func validateDeck(deck []string, cat *catalog.Catalog, maxSize int) []string {
	out := make([]string, 0, maxSize)
	for _, id := range deck {
		if len(out) >= maxSize {
			break
		}
		if cat.IsValid(id) {
			out = append(out, id)
		}
	}
	return out
}
