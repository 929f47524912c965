package engine

import (
	"errors"
	"testing"
)

// parseRoom parses rows into a board sized to fit them exactly.
func parseRoom(t *testing.T, rows ...string) (*Board, State) {
	t.Helper()
	width := 0
	for _, row := range rows {
		if n := len([]rune(row)); n > width {
			width = n
		}
	}
	b, s, err := ParseLayout(Dims{Width: width, Height: len(rows)}, rows)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	return b, s
}

func at(b *Board, x, y int) Coordinate {
	return b.Dims.MustCoord(x, y)
}

func TestTransition_Walk(t *testing.T) {
	b, root := parseRoom(t,
		"#####",
		"#@ G#",
		"#####",
	)

	next, ok := Transition(b, root, Right)
	if !ok {
		t.Fatal("expected walking right to succeed")
	}
	if next.Player != at(b, 2, 1) {
		t.Errorf("expected player at (2,1), got %v", next.Player)
	}
	if !next.Parity {
		t.Error("expected parity to flip after a move")
	}
	if root.Player != at(b, 1, 1) || root.Parity {
		t.Error("Transition must not modify its input state")
	}

	for _, dir := range []Direction{Up, Down, Left} {
		if _, ok := Transition(b, root, dir); ok {
			t.Errorf("expected %s into a wall to fail", dir)
		}
	}
}

func TestTransition_OffGrid(t *testing.T) {
	b, root := parseRoom(t, "@G")

	for _, dir := range []Direction{Up, Down, Left} {
		if CanMove(b, root, dir) {
			t.Errorf("expected %s off the grid to fail", dir)
		}
	}
	if !CanMove(b, root, Right) {
		t.Error("expected Right onto the goal to succeed")
	}
}

func TestTransition_KickRock(t *testing.T) {
	b, root := parseRoom(t,
		"######",
		"#@O G#",
		"######",
	)

	kicked, ok := Transition(b, root, Right)
	if !ok {
		t.Fatal("expected kick to succeed")
	}
	if kicked.Player != root.Player {
		t.Errorf("kick must leave the player in place, got %v", kicked.Player)
	}
	if kicked.Obstacles.Contains(at(b, 2, 1)) || !kicked.Obstacles.Contains(at(b, 3, 1)) {
		t.Errorf("expected rock moved from (2,1) to (3,1), got %v", kicked.Obstacles.Coordinates())
	}
	if !kicked.Parity {
		t.Error("a kick is a move and must flip parity")
	}

	walked, ok := Transition(b, kicked, Right)
	if !ok || walked.Player != at(b, 2, 1) {
		t.Fatalf("expected to walk into the freed cell, got %v ok=%v", walked.Player, ok)
	}

	// rocks may be kicked onto the goal
	onGoal, ok := Transition(b, walked, Right)
	if !ok || !onGoal.Obstacles.Contains(b.Goal) {
		t.Errorf("expected rock kicked onto the goal, ok=%v", ok)
	}
}

func TestTransition_KickBlocked(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{
			name: "rock against wall",
			rows: []string{
				"#####",
				"#@O##",
				"#  G#",
				"#####",
			},
		},
		{
			name: "rock against rock",
			rows: []string{
				"#######",
				"#@OO G#",
				"#######",
			},
		},
		{
			name: "rock against fragile",
			rows: []string{
				"#######",
				"#@O% G#",
				"#######",
			},
		},
		{
			name: "rock against grid edge",
			rows: []string{
				"@O",
				"G ",
			},
		},
		{
			name: "rock against locked lock",
			rows: []string{
				"#######",
				"#@OL G#",
				"#K    #",
				"#######",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, root := parseRoom(t, test.rows...)
			if next, ok := Transition(b, root, Right); ok {
				t.Errorf("expected kick to fail, got player %v rocks %v", next.Player, next.Obstacles.Coordinates())
			}
		})
	}
}

func TestTransition_KickIntoUnlockedLock(t *testing.T) {
	b, root := parseRoom(t,
		"#######",
		"#@OL G#",
		"#K    #",
		"#######",
	)

	withKey := root
	withKey.HasKey = true
	next, ok := Transition(b, withKey, Right)
	if !ok {
		t.Fatal("expected kick into an opened lock to succeed")
	}
	if !next.Obstacles.Contains(b.Lock) {
		t.Errorf("expected rock on the lock, got %v", next.Obstacles.Coordinates())
	}
}

func TestTransition_Fragile(t *testing.T) {
	t.Run("kicked when free", func(t *testing.T) {
		b, root := parseRoom(t,
			"######",
			"#@% G#",
			"######",
		)
		next, ok := Transition(b, root, Right)
		if !ok {
			t.Fatal("expected kick to succeed")
		}
		if next.Player != root.Player {
			t.Error("kick must leave the player in place")
		}
		if !next.Fragile.Contains(at(b, 3, 1)) || next.Fragile.Len() != 1 {
			t.Errorf("expected fragile moved to (3,1), got %v", next.Fragile.Coordinates())
		}
	})

	t.Run("shattered against wall", func(t *testing.T) {
		b, root := parseRoom(t,
			"#####",
			"#@%##",
			"#G  #",
			"#####",
		)
		next, ok := Transition(b, root, Right)
		if !ok {
			t.Fatal("a blocked fragile obstacle must be destroyed, not refuse the move")
		}
		if !next.Fragile.Empty() {
			t.Errorf("expected no fragile obstacles, got %v", next.Fragile.Coordinates())
		}
		if next.Player != root.Player || !next.Parity {
			t.Errorf("expected stationary player and flipped parity, got %v parity=%v", next.Player, next.Parity)
		}
	})

	t.Run("shattered at grid edge", func(t *testing.T) {
		b, root := parseRoom(t,
			"@%",
			"G ",
		)
		next, ok := Transition(b, root, Right)
		if !ok || !next.Fragile.Empty() {
			t.Errorf("expected fragile shattered at the edge, ok=%v", ok)
		}
	})

	t.Run("shattered against rock", func(t *testing.T) {
		b, root := parseRoom(t,
			"#######",
			"#@%O G#",
			"#######",
		)
		next, ok := Transition(b, root, Right)
		if !ok || !next.Fragile.Empty() {
			t.Errorf("expected fragile shattered against the rock, ok=%v", ok)
		}
		if !next.Obstacles.Contains(at(b, 3, 1)) {
			t.Error("the rock must stay put")
		}
	})
}

func TestTransition_KeyAndLock(t *testing.T) {
	b, root := parseRoom(t,
		"#####",
		"#@LG#",
		"#K###",
		"#####",
	)

	if CanMove(b, root, Right) {
		t.Fatal("expected the lock to bar a player without the key")
	}

	withKey, ok := Transition(b, root, Down)
	if !ok || !withKey.HasKey {
		t.Fatalf("expected to pick up the key, ok=%v hasKey=%v", ok, withKey.HasKey)
	}

	back, ok := Transition(b, withKey, Up)
	if !ok || !back.HasKey {
		t.Fatal("the key must stay collected after leaving its cell")
	}

	through, ok := Transition(b, back, Right)
	if !ok || through.Player != b.Lock {
		t.Errorf("expected to walk onto the opened lock, got %v ok=%v", through.Player, ok)
	}
}

func TestTransition_LockWithoutKeyIsFloor(t *testing.T) {
	b, root := parseRoom(t, "#@LG#")

	if b.Locked(root, b.Lock) {
		t.Error("a lock on a board without a key must not be locked")
	}
	next, ok := Transition(b, root, Right)
	if !ok || next.Player != b.Lock {
		t.Errorf("expected to walk onto the lock, got %v ok=%v", next.Player, ok)
	}
}

func TestSuccessors_Order(t *testing.T) {
	b, root := parseRoom(t,
		"   ",
		" @ ",
		"  G",
	)

	moves := Successors(b, root)
	if len(moves) != 4 {
		t.Fatalf("expected 4 successors, got %d", len(moves))
	}
	for i, dir := range AllDirections() {
		if moves[i].Direction != dir {
			t.Errorf("successor %d: expected %s, got %s", i, dir, moves[i].Direction)
		}
	}

	dirs := PossibleMoves(b, root)
	if len(dirs) != 4 {
		t.Errorf("expected 4 possible moves, got %v", dirs)
	}
}

func TestReplay(t *testing.T) {
	b, root := parseRoom(t,
		"#####",
		"#@LG#",
		"#K###",
		"#####",
	)

	final, err := Replay(b, root, []Direction{Down, Up, Right, Right})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !final.AtGoal(b) {
		t.Errorf("expected to end on the goal, got %v", final.Player)
	}

	_, err = Replay(b, root, []Direction{Down, Down})
	if !errors.Is(err, ErrIllegalMove) {
		t.Errorf("expected ErrIllegalMove, got %v", err)
	}
}
