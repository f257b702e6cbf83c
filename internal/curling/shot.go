package curling

import "math"

// ShotKind names the branch of the heuristic that produced a shot.
type ShotKind string

const (
	ShotDraw     ShotKind = "draw"
	ShotTakeout  ShotKind = "takeout"
	ShotGuard    ShotKind = "guard"
	ShotFallback ShotKind = "fallback"
)

// Heuristic thresholds.
const (
	TakeoutRadius = 20.0 // opponent stones this close to the center get knocked out
	TakeoutBoost  = 1.3  // takeout power relative to draw weight
	DrawSlack     = 1.02 // covers the distance lost below StopSpeed
	MinPower      = 0.05 // floor for every produced shot
	GuardMin      = 60.0 // guard stops this far in front of the stone it protects
	GuardMax      = 80.0
	FallbackMin   = 5.0 // fallback lateral offset from the center line
	FallbackMax   = 15.0

	drawOffset     = 20.0 // width of the random aim window around the button
	angleJitter    = 0.08
	powerJitter    = 0.08
	fallbackWobble = 1.5 // fallback shots are thrown with less confidence
)

// ChooseShot picks the automated side's next throw. It is an open-loop estimate: the
// required launch speed is derived from the friction decay, not from stepping. Branches
// in order: draw when no opponent stone is in the house, takeout when an opponent stone
// sits on the button ahead of ours, guard when we already lie shot, otherwise an
// off-center draw.
func ChooseShot(set Set, ai Side, cfg Config, remaining int, rng Rand) Shot {
	center := cfg.HouseCenter
	from := cfg.LaunchPoint()

	// The last stone is thrown more carefully.
	wobble := 1.0
	if remaining <= 1 {
		wobble = 0.5
	}

	opp, oppDist, hasOpp := closestOf(set, ai.Opponent(), cfg)
	own, ownDist, hasOwn := closestOf(set, ai, cfg)
	ownInHouse := hasOwn && cfg.InHouse(own.Position)
	oppLeads := hasOpp && (!hasOwn || closer(opp, oppDist, own, ownDist))

	switch {
	case !hasOpp || !cfg.InHouse(opp.Position):
		target := Vec2{X: center.X + spread(rng, drawOffset), Y: center.Y}
		return aimAt(rng, from, target, cfg, 1, wobble, 0.5, ShotDraw)

	case oppDist <= TakeoutRadius && (!ownInHouse || oppLeads):
		return aimAt(rng, from, opp.Position, cfg, TakeoutBoost, wobble, 0.3, ShotTakeout)

	case ownInHouse && !oppLeads:
		target := Vec2{
			X: own.Position.X + spread(rng, drawOffset),
			Y: own.Position.Y + between(rng, GuardMin, GuardMax),
		}
		return aimAt(rng, from, target, cfg, 1, wobble, 0.4, ShotGuard)

	default:
		offset := between(rng, FallbackMin, FallbackMax)
		if rng.Float64() < 0.5 {
			offset = -offset
		}
		target := Vec2{X: center.X + offset, Y: center.Y}
		return aimAt(rng, from, target, cfg, 1, wobble*fallbackWobble, 0.4, ShotFallback)
	}
}

// aimAt builds a jittered shot from the launch point toward target, weighted to stop
// there (boost 1) or to arrive with extra pace (boost > 1).
func aimAt(rng Rand, from, target Vec2, cfg Config, boost, wobble, curlWidth float64, kind ShotKind) Shot {
	angle := aimAngle(from, target) + spread(rng, angleJitter*wobble)
	power := DrawPower(from, target, cfg)*boost + spread(rng, powerJitter*wobble)
	return Shot{
		Power: ClampPower(power, MinPower),
		Angle: angle,
		Curl:  spread(rng, curlWidth*wobble),
		Kind:  kind,
	}
}

// DrawPower estimates the power that brings a stone from `from` to rest at `to`. With
// per-tick decay f a stone launched at v travels about v/(1-f).
func DrawPower(from, to Vec2, cfg Config) float64 {
	needed := from.DistanceTo(to) * (1 - cfg.Friction) * DrawSlack
	return needed / MaxLaunchSpeed
}

// aimAngle returns the launch angle, in Launch's frame, that points from `from` at `to`.
func aimAngle(from, to Vec2) float64 {
	a := math.Atan2(to.X-from.X, from.Y-to.Y)
	if math.IsNaN(a) {
		return 0
	}
	return a
}

func closestOf(set Set, side Side, cfg Config) (Disc, float64, bool) {
	var best Disc
	bestDist := math.Inf(1)
	found := false
	for _, d := range set {
		if d.Side != side {
			continue
		}
		if dist := cfg.DistanceToCenter(d.Position); !found || closer(d, dist, best, bestDist) {
			best, bestDist, found = d, dist, true
		}
	}
	return best, bestDist, found
}
