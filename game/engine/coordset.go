package engine

import "math/bits"

const (
	wordBits = 64
	setWords = 4
)

// CoordinateSet is a fixed-capacity bitset over the cells of a grid.
// Bit i is the cell (i mod Width, i div Width). The zero value is unusable;
// build sets with NewCoordinateSet so they carry the grid width.
//
// The set is a plain comparable value, so two sets compare equal with ==
// exactly when their bit patterns (and grid width) match.
type CoordinateSet struct {
	width uint8
	words [setWords]uint64
}

// NewCoordinateSet returns a set over dims holding coords.
func NewCoordinateSet(dims Dims, coords ...Coordinate) CoordinateSet {
	s := CoordinateSet{width: uint8(dims.Width)}
	for _, c := range coords {
		s.Insert(c)
	}
	return s
}

func (s *CoordinateSet) locate(c Coordinate) (word int, bit uint) {
	i := int(c.Y)*int(s.width) + int(c.X)
	return i / wordBits, uint(i % wordBits)
}

// Contains reports whether c is in the set.
func (s CoordinateSet) Contains(c Coordinate) bool {
	w, b := s.locate(c)
	return s.words[w]&(1<<b) != 0
}

// Insert adds c. Inserting a present coordinate is a no-op.
func (s *CoordinateSet) Insert(c Coordinate) {
	w, b := s.locate(c)
	s.words[w] |= 1 << b
}

// Remove deletes c. Removing an absent coordinate is a no-op.
func (s *CoordinateSet) Remove(c Coordinate) {
	w, b := s.locate(c)
	s.words[w] &^= 1 << b
}

// Len returns the number of coordinates in the set.
func (s CoordinateSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether no bit is set.
func (s CoordinateSet) Empty() bool {
	return s.words == [setWords]uint64{}
}

// Coordinates lists members in bit order (row-major).
func (s CoordinateSet) Coordinates() []Coordinate {
	if s.width == 0 {
		return nil
	}
	out := make([]Coordinate, 0, s.Len())
	for wi, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			i := wi*wordBits + b
			out = append(out, Coordinate{X: uint8(i % int(s.width)), Y: uint8(i / int(s.width))})
			w &= w - 1
		}
	}
	return out
}
