package engine

import "slices"

// Edge records how a state was (best) reached.
type Edge struct {
	Predecessor State
	Direction   Direction
}

// entry is one row of the visited table. The root has no edge.
type entry struct {
	edge      Edge
	root      bool
	stepsLeft int
}

// visitedTable maps every discovered state to how it was reached. Its
// edges form a tree rooted at the initial state.
type visitedTable map[State]entry

// Step is one move of a solution.
type Step struct {
	Index     int
	Direction Direction
	Before    State
	After     State
}

// Solution is a chronological move list from Root to the goal.
type Solution struct {
	Root  State
	Steps []Step
}

// Moves returns the directions of the solution in order.
func (s Solution) Moves() []Direction {
	dirs := make([]Direction, len(s.Steps))
	for i, st := range s.Steps {
		dirs[i] = st.Direction
	}
	return dirs
}

// Final returns the state after the last move.
func (s Solution) Final() State {
	if len(s.Steps) == 0 {
		return s.Root
	}
	return s.Steps[len(s.Steps)-1].After
}

// reconstruct walks predecessor edges back from terminal to the root.
func (t visitedTable) reconstruct(terminal State) Solution {
	var steps []Step
	s := terminal
	for {
		e, ok := t[s]
		if !ok {
			panic("engine: state missing from visited table")
		}
		if e.root {
			break
		}
		if len(steps) > len(t) {
			panic("engine: predecessor cycle")
		}
		steps = append(steps, Step{Direction: e.edge.Direction, Before: e.edge.Predecessor, After: s})
		s = e.edge.Predecessor
	}
	slices.Reverse(steps)
	for i := range steps {
		steps[i].Index = i + 1
	}
	return Solution{Root: s, Steps: steps}
}
