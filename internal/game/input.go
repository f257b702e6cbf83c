package game

import (
	"errors"
	"math"

	"github.com/niyoseris/curling/internal/curling"
)

// Swipe thresholds in screen points.
const (
	SwipeMinDistance = 15.0
	SwipeMinRise     = 10.0 // the swipe must travel at least this far up the screen
	SwipeMaxDrag     = 120.0
)

// ErrWeakSwipe is returned for swipes too short or not pointed up the sheet.
var ErrWeakSwipe = errors.New("swipe too short or not upward")

// ShotFromSwipe turns a release gesture into a shot. dy is negative for an upward swipe.
func ShotFromSwipe(dx, dy, curl float64) (curling.Shot, error) {
	dist := math.Hypot(dx, dy)
	if !(dist > SwipeMinDistance) || !(dy < -SwipeMinRise) {
		return curling.Shot{}, ErrWeakSwipe
	}
	shot := curling.Shot{
		Power: math.Min(dist/SwipeMaxDrag, 1),
		Angle: math.Atan2(dx, -dy),
		Curl:  curl,
	}
	if err := shot.Validate(); err != nil {
		return curling.Shot{}, err
	}
	return shot, nil
}
