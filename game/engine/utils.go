package engine

// ManhattanDistance calculates the Manhattan distance between two cells.
func ManhattanDistance(from, to Coordinate) int {
	dx := int(from.X) - int(to.X)
	if dx < 0 {
		dx = -dx
	}
	dy := int(from.Y) - int(to.Y)
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// ReachableCells flood-fills from the player over every cell that is not a
// wall, treating rocks, fragile obstacles and the lock as passable. It is an
// upper bound on where the player could ever stand.
func ReachableCells(b *Board, s State) CoordinateSet {
	seen := NewCoordinateSet(b.Dims, s.Player)
	queue := []Coordinate{s.Player}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, dir := range AllDirections() {
			n, ok := b.Dims.Step(c, dir)
			if !ok || seen.Contains(n) || b.Walls.Contains(n) {
				continue
			}
			seen.Insert(n)
			queue = append(queue, n)
		}
	}
	return seen
}

// GoalEnclosed reports whether walls alone cut the player off from the goal,
// in which case no search can succeed.
func GoalEnclosed(b *Board, s State) bool {
	return !ReachableCells(b, s).Contains(b.Goal)
}

// CountCells returns the number of open (non-wall) cells.
func CountCells(b *Board) int {
	return b.Dims.Cells() - b.Walls.Len()
}
