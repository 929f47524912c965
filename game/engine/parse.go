package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedLayout is returned when a layout cannot describe a room.
var ErrMalformedLayout = errors.New("malformed layout")

// Layout characters.
const (
	CharWall       = '#'
	CharFloor      = ' '
	CharFloorAlt   = '.'
	CharPlayer     = '@'
	CharGoal       = 'G'
	CharRock       = 'O'
	CharKey        = 'K'
	CharLock       = 'L'
	CharOpenLock   = 'l'
	CharFragile    = '%'
	CharHazardOdd  = 'o'
	CharHazardEven = 'e'
)

// Legend describes every layout character.
var Legend = map[string]string{
	string(CharWall):       "wall",
	string(CharFloor):      "floor",
	string(CharFloorAlt):   "floor",
	string(CharPlayer):     "player",
	string(CharGoal):       "goal",
	string(CharRock):       "rock",
	string(CharKey):        "key",
	string(CharLock):       "lock",
	string(CharOpenLock):   "lock (open)",
	string(CharFragile):    "fragile",
	string(CharHazardOdd):  "hazard_odd",
	string(CharHazardEven): "hazard_even",
}

// ParseLiteral parses a single-string room. Rows are separated by '|'
// (newlines are then ignored) or, when no '|' is present, by newlines.
func ParseLiteral(dims Dims, literal string) (*Board, State, error) {
	return ParseLayout(dims, SplitLiteral(literal))
}

// SplitLiteral splits a room literal into rows.
func SplitLiteral(literal string) []string {
	literal = strings.ReplaceAll(literal, "\r", "")
	if strings.Contains(literal, "|") {
		return strings.Split(strings.ReplaceAll(literal, "\n", ""), "|")
	}
	rows := strings.Split(literal, "\n")
	for len(rows) > 0 && rows[0] == "" {
		rows = rows[1:]
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// ParseLayout builds the board and root state from layout rows. Rows may be
// shorter than the grid; missing cells are floor.
func ParseLayout(dims Dims, rows []string) (*Board, State, error) {
	if err := dims.Validate(); err != nil {
		return nil, State{}, fmt.Errorf("%w: %w", ErrMalformedLayout, err)
	}

	walls := NewCoordinateSet(dims)
	hazardOdd := NewCoordinateSet(dims)
	hazardEven := NewCoordinateSet(dims)
	var rocks, fragile []Coordinate
	var player, goal, key, lock *Coordinate
	hazards := false

	place := func(slot **Coordinate, c Coordinate, what string) error {
		if *slot != nil {
			return fmt.Errorf("%w: second %s at %s (first at %s)", ErrMalformedLayout, what, c, **slot)
		}
		*slot = &c
		return nil
	}

	for y, row := range rows {
		for x, ch := range []rune(row) {
			c, err := dims.Coord(x, y)
			if err != nil {
				return nil, State{}, fmt.Errorf("%w: %q at row %d col %d: %w", ErrMalformedLayout, ch, y+1, x+1, err)
			}
			switch ch {
			case CharFloor, CharFloorAlt:
			case CharWall:
				walls.Insert(c)
			case CharRock:
				rocks = append(rocks, c)
			case CharFragile:
				fragile = append(fragile, c)
			case CharPlayer:
				err = place(&player, c, "player")
			case CharGoal:
				err = place(&goal, c, "goal")
			case CharKey:
				err = place(&key, c, "key")
			case CharLock, CharOpenLock:
				err = place(&lock, c, "lock")
			case CharHazardOdd:
				hazardOdd.Insert(c)
				hazards = true
			case CharHazardEven:
				hazardEven.Insert(c)
				hazards = true
			default:
				err = fmt.Errorf("%w: invalid character %q at row %d col %d", ErrMalformedLayout, ch, y+1, x+1)
			}
			if err != nil {
				return nil, State{}, err
			}
		}
	}

	if player == nil {
		return nil, State{}, fmt.Errorf("%w: no player start (%c)", ErrMalformedLayout, CharPlayer)
	}
	if goal == nil {
		return nil, State{}, fmt.Errorf("%w: no goal (%c)", ErrMalformedLayout, CharGoal)
	}

	var opts []BoardOption
	if key != nil {
		opts = append(opts, WithKey(*key))
	}
	if lock != nil {
		opts = append(opts, WithLock(*lock))
	}
	if hazards {
		opts = append(opts, WithHazards(hazardOdd, hazardEven))
	}

	board := NewBoard(dims, walls, *goal, opts...)
	return board, NewState(dims, *player, rocks, fragile), nil
}
