package engine

import (
	"fmt"
	"strings"
)

// CellChar returns the layout character shown at c.
func CellChar(b *Board, s State, c Coordinate) rune {
	switch {
	case s.Player == c:
		return CharPlayer
	case b.Walls.Contains(c):
		return CharWall
	case s.Obstacles.Contains(c):
		return CharRock
	case s.Fragile.Contains(c):
		return CharFragile
	case b.HasLock && b.Lock == c:
		if b.Locked(s, c) {
			return CharLock
		}
		return CharOpenLock
	case b.HasKey && b.Key == c && !s.HasKey:
		return CharKey
	case b.Goal == c:
		return CharGoal
	case b.Hazards && b.HazardOdd.Contains(c):
		return CharHazardOdd
	case b.Hazards && b.HazardEven.Contains(c):
		return CharHazardEven
	}
	return CharFloor
}

// RenderRows draws the room row by row.
func RenderRows(b *Board, s State) []string {
	rows := make([]string, b.Dims.Height)
	var sb strings.Builder
	for y := 0; y < b.Dims.Height; y++ {
		sb.Reset()
		for x := 0; x < b.Dims.Width; x++ {
			sb.WriteRune(CellChar(b, s, Coordinate{X: uint8(x), Y: uint8(y)}))
		}
		rows[y] = sb.String()
	}
	return rows
}

// Render draws the room as newline separated rows.
func Render(b *Board, s State) string {
	return strings.Join(RenderRows(b, s), "\n")
}

// RenderSolution draws the root followed by every step of sol.
func RenderSolution(b *Board, sol Solution) string {
	var sb strings.Builder
	sb.WriteString(Render(b, sol.Root))
	sb.WriteByte('\n')
	for _, st := range sol.Steps {
		fmt.Fprintf(&sb, "\nstep: %d, input: %s\n", st.Index, st.Direction)
		sb.WriteString(Render(b, st.After))
		sb.WriteByte('\n')
	}
	return sb.String()
}
