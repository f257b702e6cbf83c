package curling

import "sort"

// Outcome is the result of an end. Only one side scores; Closest is empty when no stone
// is in the house.
type Outcome struct {
	Red     int  `json:"red"`
	Yellow  int  `json:"yellow"`
	Closest Side `json:"closest_side,omitempty"`
}

// For returns the points scored by side.
func (o Outcome) For(side Side) int {
	if side == SideRed {
		return o.Red
	}
	return o.Yellow
}

type rankedDisc struct {
	disc     Disc
	distance float64
}

// rankInHouse returns the stones within HouseRadius of the center, nearest first. Equal
// distances are ordered by ID so the ranking does not depend on slot order.
func rankInHouse(set Set, cfg Config) []rankedDisc {
	ranked := make([]rankedDisc, 0, len(set))
	for _, d := range set {
		if cfg.InHouse(d.Position) {
			ranked = append(ranked, rankedDisc{disc: d, distance: cfg.DistanceToCenter(d.Position)})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return closer(ranked[i].disc, ranked[i].distance, ranked[j].disc, ranked[j].distance)
	})
	return ranked
}

// closer reports whether a, at distance da from the center, outranks b at db.
func closer(a Disc, da float64, b Disc, db float64) bool {
	if da != db {
		return da < db
	}
	return a.ID < b.ID
}

// Score counts the stones of the side closest to the center that are nearer than the
// opponent's best stone.
func Score(set Set, cfg Config) Outcome {
	ranked := rankInHouse(set, cfg)
	if len(ranked) == 0 {
		return Outcome{}
	}

	closest := ranked[0].disc.Side
	points := 0
	for _, r := range ranked {
		if r.disc.Side != closest {
			break
		}
		points++
	}

	out := Outcome{Closest: closest}
	if closest == SideRed {
		out.Red = points
	} else {
		out.Yellow = points
	}
	return out
}
