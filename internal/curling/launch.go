package curling

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidShot is returned for shots carrying NaN or infinite values.
var ErrInvalidShot = errors.New("invalid shot")

// Shot is a throw: power in (0,1], angle in radians measured from straight up the
// sheet (positive toward +x), and curl as a lateral velocity bias.
type Shot struct {
	Power float64  `json:"power"`
	Angle float64  `json:"angle"`
	Curl  float64  `json:"curl"`
	Kind  ShotKind `json:"kind,omitempty"`
}

// Validate rejects non-finite shots. Out-of-range power is not an error here; callers
// clamp it with ClampPower.
func (s Shot) Validate() error {
	if !isFinite(s.Power) || !isFinite(s.Angle) || !isFinite(s.Curl) {
		return fmt.Errorf("%w: non-finite power/angle/curl", ErrInvalidShot)
	}
	return nil
}

// ClampPower limits p to [min, 1].
func ClampPower(p, min float64) float64 {
	return math.Max(min, math.Min(1, p))
}

// Launch returns d thrown with the given power, angle and curl. Negative vy means the
// stone travels away from the launch end.
func Launch(d Disc, power, angle, curl float64) Disc {
	speed := power * MaxLaunchSpeed
	d.Velocity = Vec2{
		X: math.Sin(angle)*speed + curl*CurlFactor,
		Y: -math.Cos(angle) * speed,
	}
	d.Moving = true
	return d
}

// LaunchShot is Launch with the values taken from s.
func LaunchShot(d Disc, s Shot) Disc {
	return Launch(d, s.Power, s.Angle, s.Curl)
}
