package engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultWidth and DefaultHeight are the room size of the classic puzzle.
	DefaultWidth  = 16
	DefaultHeight = 8

	// MaxCells bounds Width*Height so a CoordinateSet stays a fixed-size value.
	MaxCells = setWords * wordBits

	// DefaultBudget is the move cap used by budget mode when a puzzle sets none.
	DefaultBudget = 33

	// MaxBudget keeps budget searches bounded for API callers.
	MaxBudget = 1000
)

var (
	ErrOutOfBounds   = errors.New("coordinate out of bounds")
	ErrInvalidDims   = errors.New("invalid grid dimensions")
	ErrBadDirection  = errors.New("unknown direction")
	ErrInvalidBudget = errors.New("invalid move budget")
)

// Dims is the grid size. Every Coordinate and CoordinateSet belongs to one Dims.
type Dims struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultDims returns the 16x8 room size.
func DefaultDims() Dims {
	return Dims{Width: DefaultWidth, Height: DefaultHeight}
}

// Validate checks that the grid fits in a CoordinateSet.
func (d Dims) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDims, d.Width, d.Height)
	}
	if d.Width > 255 || d.Height > 255 {
		return fmt.Errorf("%w: sides must be at most 255, got %dx%d", ErrInvalidDims, d.Width, d.Height)
	}
	if d.Width*d.Height > MaxCells {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrInvalidDims, d.Width, d.Height, MaxCells)
	}
	return nil
}

// Cells returns Width*Height.
func (d Dims) Cells() int {
	return d.Width * d.Height
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Coordinate is a cell position. Values are only built through Dims.Coord
// or Dims.Step, so they are always inside their grid.
type Coordinate struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Coord builds a Coordinate, rejecting values outside the grid.
func (d Dims) Coord(x, y int) (Coordinate, error) {
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return Coordinate{}, fmt.Errorf("%w: (%d,%d) not in %s", ErrOutOfBounds, x, y, d)
	}
	return Coordinate{X: uint8(x), Y: uint8(y)}, nil
}

// MustCoord is Coord for literals known to be valid. It panics otherwise.
func (d Dims) MustCoord(x, y int) Coordinate {
	c, err := d.Coord(x, y)
	if err != nil {
		panic(err)
	}
	return c
}

// Contains reports whether c lies inside the grid.
func (d Dims) Contains(c Coordinate) bool {
	return int(c.X) < d.Width && int(c.Y) < d.Height
}

// Step moves one cell in direction dir. It returns false when the step
// would leave the grid.
func (d Dims) Step(c Coordinate, dir Direction) (Coordinate, bool) {
	switch dir {
	case Up:
		if c.Y == 0 {
			return c, false
		}
		c.Y--
	case Down:
		if int(c.Y) >= d.Height-1 {
			return c, false
		}
		c.Y++
	case Left:
		if c.X == 0 {
			return c, false
		}
		c.X--
	case Right:
		if int(c.X) >= d.Width-1 {
			return c, false
		}
		c.X++
	default:
		return c, false
	}
	return c, true
}

// Direction is one of the four moves.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

// AllDirections returns the four directions in expansion order.
func AllDirections() [4]Direction {
	return [4]Direction{Up, Down, Left, Right}
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// ParseDirection accepts "up"/"down"/"left"/"right" and their initials.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadDirection, s)
}

// MarshalText encodes a Direction as its name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a Direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
