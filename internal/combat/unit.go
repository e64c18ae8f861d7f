// Package combat implements the fixed-tick deterministic combat simulator:
// the unit state machine, targeting, collision, damage, knockback, castle
// damage and win detection for a single room's 1-D lane.
package combat

import "fmt"

// Side is a player's allegiance and direction of travel.
type Side int

const (
	Player1 Side = iota
	Player2
)

// Direction returns +1 for Player1 (moves toward +x) and -1 for Player2.
func (s Side) Direction() float64 {
	if s == Player1 {
		return 1
	}
	return -1
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Player1 {
		return Player2
	}
	return Player1
}

// String renders the side the way the wire protocol names it.
func (s Side) String() string {
	if s == Player1 {
		return "player1"
	}
	return "player2"
}

// MarshalJSON renders Side as "player1"/"player2",
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses "player1"/"player2" back into a Side.
func (s *Side) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"player1"`:
		*s = Player1
	case `"player2"`:
		*s = Player2
	default:
		return fmt.Errorf("combat: invalid side %s", data)
	}
	return nil
}

// State is a unit's position in the combat state machine.
type State string

const (
	StateSpawn          State = "SPAWN"
	StateWalk           State = "WALK"
	StateAttackWindup   State = "ATTACK_WINDUP"
	StateAttackCooldown State = "ATTACK_COOLDOWN"
	StateHitstun        State = "HITSTUN"
	StateDie            State = "DIE"
)

// ID is a generational identifier for a unit in an Arena: cheap to validate
// against a stale reference without a map lookup by string (Design Notes
// item 3 — the wire boundary renders this as an opaque string via String()).
type ID struct {
	Index      int
	Generation int
}

// String renders the id as "<index>-<generation>" for JSON/wire use.
func (id ID) String() string {
	return fmt.Sprintf("%d-%d", id.Index, id.Generation)
}

// ParseID parses the output of String back into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	if _, err := fmt.Sscanf(s, "%d-%d", &id.Index, &id.Generation); err != nil {
		return ID{}, fmt.Errorf("combat: invalid unit id %q: %w", s, err)
	}
	return id, nil
}

// MarshalJSON renders the id as its opaque wire string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON parses the wire string back into an ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("combat: invalid unit id %s", data)
	}
	parsed, err := ParseID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Unit is a live entity on the lane. Definition-derived fields are copied in
// at spawn time so the simulator never needs catalog access mid-tick.
type Unit struct {
	ID                ID
	DefinitionID      string
	Side              Side
	X                 float64
	HP                int
	MaxHP             int
	State             State
	StateTimerMs      float64
	TargetID          *ID
	DamageAccumulated int
	Width             float64

	Speed            float64
	AttackDamage     int
	AttackRange      float64
	AttackCooldownMs int
	AttackWindupMs   int
	Knockback        float64
	IsBoss           bool
}

// HalfWidth returns half of the unit's footprint.
func (u *Unit) HalfWidth() float64 {
	return u.Width / 2
}

// Alive reports whether the unit has not yet entered DIE.
func (u *Unit) Alive() bool {
	return u.State != StateDie
}

// enterState transitions the unit to a new state and resets its timer.
func (u *Unit) enterState(s State) {
	u.State = s
	u.StateTimerMs = 0
}

// UnitView is the wire-facing snapshot of a Unit.
type UnitView struct {
	InstanceID   ID      `json:"instanceId"`
	DefinitionID string  `json:"definitionId"`
	Side         Side    `json:"side"`
	X            float64 `json:"x"`
	HP           int     `json:"hp"`
	MaxHP        int     `json:"maxHp"`
	State        State   `json:"state"`
	StateTimer   float64 `json:"stateTimer"`
	TargetID     *ID     `json:"targetId,omitempty"`
}

// View renders the unit as its wire snapshot.
func (u *Unit) View() UnitView {
	return UnitView{
		InstanceID:   u.ID,
		DefinitionID: u.DefinitionID,
		Side:         u.Side,
		X:            u.X,
		HP:           u.HP,
		MaxHP:        u.MaxHP,
		State:        u.State,
		StateTimer:   u.StateTimerMs,
		TargetID:     u.TargetID,
	}
}
