package curling

import (
	"errors"
	"fmt"
)

// Side identifies one of the two teams.
type Side string

const (
	SideRed    Side = "red"
	SideYellow Side = "yellow"
)

// ErrInvalidSide is returned when a side is neither red nor yellow.
var ErrInvalidSide = errors.New("invalid side")

func (s Side) Valid() bool {
	return s == SideRed || s == SideYellow
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideRed {
		return SideYellow
	}
	return SideRed
}

// ParseSide converts user input into a Side.
func ParseSide(v string) (Side, error) {
	s := Side(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, v)
	}
	return s, nil
}

// Disc is one stone. Moving is true iff the stone's speed exceeds StopSpeed; a stone at
// rest always has an exactly zero velocity.
type Disc struct {
	ID       string `json:"id"`
	Position Vec2   `json:"position"`
	Velocity Vec2   `json:"velocity"`
	Side     Side   `json:"side"`
	Moving   bool   `json:"moving"`
}

// NewDisc creates a stationary stone at (x, y).
func NewDisc(id string, side Side, x, y float64) (Disc, error) {
	if !side.Valid() {
		return Disc{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	return Disc{ID: id, Side: side, Position: Vec2{X: x, Y: y}}, nil
}

func (d Disc) Speed() float64 {
	return d.Velocity.Magnitude()
}

// Set is an ordered collection of stones. The slot order is the collision resolution
// order; identity is carried by Disc.ID.
type Set []Disc

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Find returns the stone with the given ID.
func (s Set) Find(id string) (Disc, bool) {
	for _, d := range s {
		if d.ID == id {
			return d, true
		}
	}
	return Disc{}, false
}

// Count returns how many stones belong to side.
func (s Set) Count(side Side) int {
	n := 0
	for _, d := range s {
		if d.Side == side {
			n++
		}
	}
	return n
}

// IsAnyMoving reports whether any stone is still in motion. The tick loop may stop once
// it returns false.
func IsAnyMoving(s Set) bool {
	for _, d := range s {
		if d.Moving {
			return true
		}
	}
	return false
}
