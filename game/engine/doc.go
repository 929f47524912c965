// Package engine provides the state-space search core of the kick room solver.
//
// A room is split into an immutable Board (walls, goal, key, lock, hazard
// cells) and a comparable State (rock and fragile obstacle positions, the
// player, the key flag and the move parity). Transition applies one move to
// a State; the search functions explore the implicit graph those moves
// induce:
//   - SearchShortest: round-by-round breadth-first search that stops at the
//     first goal state, giving a path with the fewest moves. Boards with
//     hazard cells defer hazard-landing states by one round.
//   - SearchBudget: label-correcting search over every state reachable within
//     a move budget, keeping the goal state with the most moves left.
//
// Every discovered State is a key in a visited table that records the edge it
// was (best) reached by. Solutions are rebuilt by walking those edges back to
// the root.
//
// Usage:
//
//	board, root, err := engine.ParseLiteral(engine.DefaultDims(), literal)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res := engine.SearchShortest(board, root)
//	if !res.Found {
//		fmt.Println("No solution")
//		return
//	}
//	fmt.Print(engine.RenderSolution(board, *res.Solution))
//
// Rules:
//
// The player moves one cell at a time. Walking into a rock kicks it one cell
// further when that cell is free; the player stays put. Fragile obstacles are
// kicked the same way, or shattered when they cannot move. The lock is closed
// until the key cell has been visited; a lock on a board without a key is
// plain floor.
package engine
