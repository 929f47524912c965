package engine

// Board is the static geometry of a room. It is never modified after
// NewBoard and is shared by reference for a whole search.
type Board struct {
	Dims  Dims
	Walls CoordinateSet
	Goal  Coordinate

	Key     Coordinate
	HasKey  bool
	Lock    Coordinate
	HasLock bool

	// Hazard sets are only meaningful when Hazards is true.
	Hazards    bool
	HazardOdd  CoordinateSet
	HazardEven CoordinateSet
}

// BoardOption sets optional board features.
type BoardOption func(*Board)

// WithKey places the key.
func WithKey(c Coordinate) BoardOption {
	return func(b *Board) { b.Key, b.HasKey = c, true }
}

// WithLock places the lock.
func WithLock(c Coordinate) BoardOption {
	return func(b *Board) { b.Lock, b.HasLock = c, true }
}

// WithHazards enables hazard mode with the cells active on odd and even parity.
func WithHazards(odd, even CoordinateSet) BoardOption {
	return func(b *Board) {
		b.Hazards = true
		b.HazardOdd = odd
		b.HazardEven = even
	}
}

// NewBoard builds an immutable board.
func NewBoard(dims Dims, walls CoordinateSet, goal Coordinate, opts ...BoardOption) *Board {
	b := &Board{
		Dims:       dims,
		Walls:      walls,
		Goal:       goal,
		HazardOdd:  NewCoordinateSet(dims),
		HazardEven: NewCoordinateSet(dims),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Locked reports whether c is the lock and it still bars the given state.
// A lock on a board without a key is plain floor.
func (b *Board) Locked(s State, c Coordinate) bool {
	return b.HasLock && b.HasKey && !s.HasKey && c == b.Lock
}

// Obstructed reports whether c cannot be entered in state s.
func (b *Board) Obstructed(s State, c Coordinate) bool {
	return b.Walls.Contains(c) ||
		s.Obstacles.Contains(c) ||
		s.Fragile.Contains(c) ||
		b.Locked(s, c)
}

// HazardActive reports whether c is hazardous at the given parity.
// Parity true means an odd number of moves has been made.
func (b *Board) HazardActive(c Coordinate, parity bool) bool {
	if !b.Hazards {
		return false
	}
	if parity {
		return b.HazardOdd.Contains(c)
	}
	return b.HazardEven.Contains(c)
}

// State is the movable part of the room: one node of the search graph.
// It is a comparable value and is used directly as a map key; two states
// are the same node only if every field matches.
type State struct {
	Obstacles CoordinateSet
	Fragile   CoordinateSet
	Player    Coordinate
	HasKey    bool
	Parity    bool
}

// NewState returns a root state with no key and even parity.
func NewState(dims Dims, player Coordinate, obstacles, fragile []Coordinate) State {
	return State{
		Obstacles: NewCoordinateSet(dims, obstacles...),
		Fragile:   NewCoordinateSet(dims, fragile...),
		Player:    player,
	}
}

// AtGoal reports whether the player stands on the board's goal.
func (s State) AtGoal(b *Board) bool {
	return s.Player == b.Goal
}
