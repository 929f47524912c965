package engine

// SearchBudget finds the goal path that uses the fewest moves among all
// paths of at most budget moves, exploring the whole budget-reachable space.
//
// Each table entry keeps the most moves left over with which its state has
// been reached. A state reached again with strictly more moves left takes
// the new predecessor and is expanded again; otherwise the new route is
// dropped. Moves left fall by exactly one per transition, so every state is
// relaxed a bounded number of times and the stack always drains.
func SearchBudget(b *Board, root State, budget int, opts ...Option) Result {
	o := applyOptions(opts)
	res := Result{Mode: ModeBudget, Budget: budget}
	if budget < 0 {
		return res
	}

	t := visitedTable{root: {root: true, stepsLeft: budget}}
	if root.AtGoal(b) {
		sol := t.reconstruct(root)
		res.Found, res.Solution, res.Visited, res.StepsLeft = true, &sol, 1, budget
		return res
	}

	var best State
	bestLeft := -1

	stack := make([]State, 0, 256)
	if budget > 0 {
		stack = append(stack, root)
	}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Expanded++

		left := t[s].stepsLeft - 1
		for _, dir := range AllDirections() {
			cand, ok := Transition(b, s, dir)
			if !ok {
				continue
			}
			if prev, seen := t[cand]; seen && prev.stepsLeft >= left {
				continue
			}
			t[cand] = entry{edge: Edge{Predecessor: s, Direction: dir}, stepsLeft: left}
			if left > 0 {
				stack = append(stack, cand)
			}
			if cand.AtGoal(b) && left > bestLeft {
				best, bestLeft = cand, left
			}
		}

		if o.full(t) {
			res.Truncated = true
			break
		}
		if res.Expanded%o.progressEvery == 0 {
			o.observe(Progress{Mode: ModeBudget, Round: res.Expanded, Frontier: len(stack), Visited: len(t)})
		}
	}

	res.Visited = len(t)
	if bestLeft < 0 || res.Truncated {
		return res
	}
	sol := t.reconstruct(best)
	res.Found, res.Solution, res.StepsLeft = true, &sol, t[best].stepsLeft
	return res
}
