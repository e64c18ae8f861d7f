package combat

// Arena is a contiguous, indexed store of units keyed by a generational id,
// so a stale TargetID left over from a removed unit is cheaply detected
// (generation mismatch) without a map lookup by string id (Design Notes
// item 3). Per-room population is small (tens), so linear iteration over
// slots for Live()/LiveSide() is the right tradeoff over a free-list-aware
// packed array.
type Arena struct {
	slots []slot
	free  []int
}

type slot struct {
	unit       Unit
	generation int
	occupied   bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Spawn inserts a unit and returns its generational id. The caller-supplied
// unit.ID is overwritten.
func (a *Arena) Spawn(u Unit) ID {
	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].unit = u
		a.slots[idx].occupied = true
	} else {
		idx = len(a.slots)
		a.slots = append(a.slots, slot{unit: u, occupied: true})
	}

	id := ID{Index: idx, Generation: a.slots[idx].generation}
	a.slots[idx].unit.ID = id
	return id
}

// Get returns a mutable pointer to the unit for id, or (nil, false) if the
// id is stale or unknown.
func (a *Arena) Get(id ID) (*Unit, bool) {
	if id.Index < 0 || id.Index >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[id.Index]
	if !s.occupied || s.generation != id.Generation {
		return nil, false
	}
	return &s.unit, true
}

// Remove evicts the unit at id, bumping its generation so any lingering
// TargetID references are invalidated.
func (a *Arena) Remove(id ID) {
	if id.Index < 0 || id.Index >= len(a.slots) {
		return
	}
	s := &a.slots[id.Index]
	if !s.occupied || s.generation != id.Generation {
		return
	}
	s.occupied = false
	s.generation++
	a.free = append(a.free, id.Index)
}

// Live returns pointers to every occupied slot's unit, including dead-but-
// not-yet-cleaned-up (state DIE) units. Callers filter by State as needed.
func (a *Arena) Live() []*Unit {
	out := make([]*Unit, 0, len(a.slots)-len(a.free))
	for i := range a.slots {
		if a.slots[i].occupied {
			out = append(out, &a.slots[i].unit)
		}
	}
	return out
}

// LiveSide returns pointers to occupied units on the given side.
func (a *Arena) LiveSide(side Side) []*Unit {
	out := make([]*Unit, 0, len(a.slots))
	for i := range a.slots {
		if a.slots[i].occupied && a.slots[i].unit.Side == side {
			out = append(out, &a.slots[i].unit)
		}
	}
	return out
}

// Len returns the number of occupied slots.
func (a *Arena) Len() int {
	return len(a.slots) - len(a.free)
}
