package engine

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned by Replay when a move has no legal outcome.
var ErrIllegalMove = errors.New("illegal move")

// Transition applies one move to s and returns the resulting state.
// It reports false when the move is illegal; s itself is never modified.
//
// Rules, in order:
//   - stepping off the grid is illegal
//   - an unobstructed neighbour is entered (picking up the key if it is there)
//   - a rock in the neighbour is kicked one cell further if that cell is free
//   - a fragile obstacle is kicked the same way, or shattered if it cannot move
//
// Kicks leave the player where it stands. Every accepted move flips Parity.
func Transition(b *Board, s State, dir Direction) (State, bool) {
	step1, ok := b.Dims.Step(s.Player, dir)
	if !ok {
		return s, false
	}

	if !b.Obstructed(s, step1) {
		next := s
		next.Player = step1
		next.Parity = !s.Parity
		if b.HasKey && step1 == b.Key {
			next.HasKey = true
		}
		return next, true
	}

	switch {
	case s.Obstacles.Contains(step1):
		step2, ok := b.Dims.Step(step1, dir)
		if !ok || b.Obstructed(s, step2) {
			return s, false
		}
		next := s
		next.Obstacles.Remove(step1)
		next.Obstacles.Insert(step2)
		next.Parity = !s.Parity
		return next, true

	case s.Fragile.Contains(step1):
		next := s
		next.Fragile.Remove(step1)
		if step2, ok := b.Dims.Step(step1, dir); ok && !b.Obstructed(s, step2) {
			next.Fragile.Insert(step2)
		}
		next.Parity = !s.Parity
		return next, true
	}

	// wall, or a lock the player cannot open yet
	return s, false
}

// Move is a legal transition out of a state.
type Move struct {
	Direction Direction
	State     State
}

// Successors returns every legal move from s in AllDirections order.
func Successors(b *Board, s State) []Move {
	moves := make([]Move, 0, 4)
	for _, dir := range AllDirections() {
		if next, ok := Transition(b, s, dir); ok {
			moves = append(moves, Move{Direction: dir, State: next})
		}
	}
	return moves
}

// CanMove reports whether dir is legal from s.
func CanMove(b *Board, s State, dir Direction) bool {
	_, ok := Transition(b, s, dir)
	return ok
}

// PossibleMoves lists the legal directions from s.
func PossibleMoves(b *Board, s State) []Direction {
	var dirs []Direction
	for _, m := range Successors(b, s) {
		dirs = append(dirs, m.Direction)
	}
	return dirs
}

// Replay applies dirs in order starting at root.
func Replay(b *Board, root State, dirs []Direction) (State, error) {
	s := root
	for i, dir := range dirs {
		next, ok := Transition(b, s, dir)
		if !ok {
			return s, fmt.Errorf("%w: move %d (%s) from %s", ErrIllegalMove, i+1, dir, s.Player)
		}
		s = next
	}
	return s, nil
}
