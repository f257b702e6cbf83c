package curling

import (
	"errors"
	"fmt"
)

// Physics and sheet constants. The tunables that vary per sheet live in Config; these
// are fixed by the game's feel and the scoring rules.
const (
	MaxLaunchSpeed  = 8.0  // sheet units per tick at power 1
	CurlFactor      = 0.3  // lateral velocity per unit of curl
	StopSpeed       = 0.08 // at or below this a stone is at rest
	BackboardMargin = 30.0 // stones bounce off backLineY - BackboardMargin
	RetireMargin    = 50.0 // resting stones at or beyond hogLineY + RetireMargin are removed
	HouseRadius     = 60.0 // scoring radius around the house center
	LaunchInset     = 30.0 // launch point distance from the near end of the sheet
)

// ErrInvalidConfig is returned when a sheet configuration violates its invariants.
var ErrInvalidConfig = errors.New("invalid sheet config")

// Config describes one sheet. It is immutable for the duration of an end.
type Config struct {
	SheetWidth  float64 `json:"sheet_width"`
	SheetHeight float64 `json:"sheet_height"`
	StoneRadius float64 `json:"stone_radius"`
	HouseCenter Vec2    `json:"house_center"`
	Friction    float64 `json:"friction"`    // multiplicative velocity decay per tick
	Restitution float64 `json:"restitution"` // bounce energy retention for walls and stones
	HogLineY    float64 `json:"hog_line_y"`
	BackLineY   float64 `json:"back_line_y"`
}

// DefaultConfig returns the standard 300x600 sheet.
func DefaultConfig() Config {
	return Config{
		SheetWidth:  300,
		SheetHeight: 600,
		StoneRadius: 12,
		HouseCenter: Vec2{X: 150, Y: 120},
		Friction:    0.985,
		Restitution: 0.7,
		HogLineY:    200,
		BackLineY:   50,
	}
}

// Validate checks the configuration invariants. A config that fails validation is a
// programming error on the caller's side and must be rejected before any stepping.
func (c Config) Validate() error {
	values := []float64{c.SheetWidth, c.SheetHeight, c.StoneRadius, c.Friction, c.Restitution, c.HogLineY, c.BackLineY}
	for _, v := range values {
		if !isFinite(v) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidConfig)
		}
	}
	if !c.HouseCenter.IsFinite() {
		return fmt.Errorf("%w: non-finite house center", ErrInvalidConfig)
	}
	if c.Friction <= 0 || c.Friction >= 1 {
		return fmt.Errorf("%w: friction %.4f outside (0,1)", ErrInvalidConfig, c.Friction)
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		return fmt.Errorf("%w: restitution %.4f outside [0,1]", ErrInvalidConfig, c.Restitution)
	}
	if c.StoneRadius <= 0 {
		return fmt.Errorf("%w: stone radius must be positive", ErrInvalidConfig)
	}
	if c.SheetWidth <= 2*c.StoneRadius || c.SheetHeight <= 2*c.StoneRadius {
		return fmt.Errorf("%w: sheet %.0fx%.0f too small for radius %.1f", ErrInvalidConfig, c.SheetWidth, c.SheetHeight, c.StoneRadius)
	}
	return nil
}

// LaunchPoint is where every stone is placed before it is thrown.
func (c Config) LaunchPoint() Vec2 {
	return Vec2{X: c.SheetWidth / 2, Y: c.SheetHeight - LaunchInset}
}

// DistanceToCenter returns the distance from p to the house center.
func (c Config) DistanceToCenter(p Vec2) float64 {
	return p.DistanceTo(c.HouseCenter)
}

// InHouse reports whether p is within scoring range.
func (c Config) InHouse(p Vec2) bool {
	return c.DistanceToCenter(p) <= HouseRadius
}
