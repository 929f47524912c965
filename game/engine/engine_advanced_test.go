package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reachable lists every state reachable from root.
func reachable(b *Board, root State) []State {
	seen := map[State]bool{root: true}
	out := []State{root}
	for i := 0; i < len(out); i++ {
		for _, m := range Successors(b, out[i]) {
			if !seen[m.State] {
				seen[m.State] = true
				out = append(out, m.State)
			}
		}
	}
	return out
}

func TestTransition_Invariants(t *testing.T) {
	b, root := parseRoom(t, searchRooms["open room"]...)
	states := reachable(b, root)
	require.Greater(t, len(states), 10)

	rocks := root.Obstacles.Len()
	for _, s := range states {
		for _, m := range Successors(b, s) {
			next := m.State
			assert.NotEqual(t, s.Parity, next.Parity, "every move flips parity")
			assert.Equal(t, rocks, next.Obstacles.Len(), "rocks are never created or destroyed")
			assert.LessOrEqual(t, next.Fragile.Len(), s.Fragile.Len())
			if s.HasKey {
				assert.True(t, next.HasKey, "the key is never lost")
			}

			if next.Player == s.Player {
				assert.True(t, next.Obstacles != s.Obstacles || next.Fragile != s.Fragile,
					"a move that leaves the player in place must be a kick")
			} else {
				assert.Equal(t, s.Obstacles, next.Obstacles, "walking never moves rocks")
				assert.Equal(t, s.Fragile, next.Fragile, "walking never moves fragile obstacles")
				assert.Equal(t, 1, ManhattanDistance(s.Player, next.Player))
			}
		}
	}
}

func TestSearchBudget_KnownRooms(t *testing.T) {
	tests := []struct {
		room      string
		budget    int
		found     bool
		stepsLeft int
	}{
		{"adjacent goal", 1, true, 0},
		{"adjacent goal", 5, true, 4},
		{"kick corridor", 4, false, 0},
		{"kick corridor", 5, true, 0},
		{"kick corridor", 10, true, 5},
		{"key before lock", 3, false, 0},
		{"key before lock", 4, true, 0},
		{"rock stuck on goal", 20, false, 0},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%s/budget=%d", test.room, test.budget), func(t *testing.T) {
			b, root := parseRoom(t, searchRooms[test.room]...)

			res := SearchBudget(b, root, test.budget)
			assert.Equal(t, ModeBudget, res.Mode)
			assert.Equal(t, test.budget, res.Budget)
			require.Equal(t, test.found, res.Found)
			if !test.found {
				assert.Nil(t, res.Solution)
				return
			}
			assert.Equal(t, test.stepsLeft, res.StepsLeft)
			assert.GreaterOrEqual(t, res.StepsLeft, 0)
			assert.Equal(t, test.budget-res.StepsLeft, res.Moves())
			assert.True(t, res.Solution.Final().AtGoal(b))
		})
	}
}

func TestSearchBudget_MatchesShortest(t *testing.T) {
	budgets := []int{1, 3, 5, 8, 12}
	for name, rows := range searchRooms {
		for _, budget := range budgets {
			t.Run(fmt.Sprintf("%s/budget=%d", name, budget), func(t *testing.T) {
				b, root := parseRoom(t, rows...)
				want := referenceDistance(b, root)

				res := SearchBudget(b, root, budget)
				if want < 0 || want > budget {
					assert.False(t, res.Found, "no path of at most %d moves exists", budget)
					return
				}
				require.True(t, res.Found)
				assert.Equal(t, want, res.Moves(), "budget search keeps the fewest-move path")
				assert.Equal(t, budget-want, res.StepsLeft)

				final, err := Replay(b, root, res.Solution.Moves())
				require.NoError(t, err)
				assert.True(t, final.AtGoal(b))
			})
		}
	}
}

func TestSearchBudget_RootAtGoal(t *testing.T) {
	d := Dims{Width: 2, Height: 2}
	goal := d.MustCoord(0, 0)
	b := NewBoard(d, NewCoordinateSet(d), goal)
	root := NewState(d, goal, nil, nil)

	res := SearchBudget(b, root, 7)
	require.True(t, res.Found)
	assert.Equal(t, 7, res.StepsLeft)
	assert.Equal(t, 0, res.Moves())
}

func TestSearchBudget_StateLimit(t *testing.T) {
	b, root := parseRoom(t, searchRooms["open room"]...)

	res := SearchBudget(b, root, 30, WithStateLimit(5))
	assert.True(t, res.Truncated)
	assert.False(t, res.Found)
}

func TestSearchBudget_Observer(t *testing.T) {
	b, root := parseRoom(t, searchRooms["open room"]...)

	var calls int
	res := SearchBudget(b, root, 25, WithObserver(func(p Progress) {
		calls++
		assert.Equal(t, ModeBudget, p.Mode)
		assert.Equal(t, 0, p.Round%1024)
	}))
	assert.Equal(t, res.Expanded/1024, calls)
}

func TestSearchShortest_HazardDefersOneRound(t *testing.T) {
	rows := []string{
		"#####",
		"#@oG#",
		"#   #",
		"#####",
	}

	b, root := parseRoom(t, rows...)
	require.True(t, b.Hazards)
	require.True(t, b.HazardActive(at(b, 2, 1), true))
	require.False(t, b.HazardActive(at(b, 2, 1), false))

	res := SearchShortest(b, root)
	require.True(t, res.Found)
	assert.Equal(t, []Direction{Right, Right}, res.Solution.Moves())
	assert.Equal(t, 3, res.Rounds, "the hazard cell waits a round before it is expanded")

	// the same cell hazardous on even moves is stepped on at an odd move
	even := strings.Replace(rows[1], "o", "e", 1)
	b, root = parseRoom(t, rows[0], even, rows[2], rows[3])
	res = SearchShortest(b, root)
	require.True(t, res.Found)
	assert.Equal(t, 2, res.Rounds)
}

func TestSearchShortest_HazardsKeepReachableSet(t *testing.T) {
	withHazards := []string{
		"#######",
		"#@o e #",
		"# O%  #",
		"####e##",
		"#G#####",
	}
	plain := make([]string, len(withHazards))
	for i, row := range withHazards {
		plain[i] = strings.NewReplacer("o", " ", "e", " ").Replace(row)
	}

	hb, hroot := parseRoom(t, withHazards...)
	pb, proot := parseRoom(t, plain...)
	require.True(t, GoalEnclosed(hb, hroot))

	hres := SearchShortest(hb, hroot)
	pres := SearchShortest(pb, proot)
	assert.False(t, hres.Found)
	assert.False(t, pres.Found)
	assert.Equal(t, len(reachable(pb, proot)), pres.Visited)
	assert.Equal(t, pres.Visited, hres.Visited)
}

func TestSearchShortest_HazardPathsAreLegal(t *testing.T) {
	b, root := parseRoom(t,
		"########",
		"#@ o  e#",
		"# O# # #",
		"#e  oO #",
		"### ##G#",
		"########",
	)
	want := referenceDistance(b, root)
	require.GreaterOrEqual(t, want, 0)

	res := SearchShortest(b, root)
	require.True(t, res.Found)
	assert.GreaterOrEqual(t, res.Moves(), want)

	final, err := Replay(b, root, res.Solution.Moves())
	require.NoError(t, err)
	assert.True(t, final.AtGoal(b))
}
