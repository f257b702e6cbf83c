package curling

// EventType classifies what happened to a stone during a tick.
type EventType string

const (
	EventCollision EventType = "collision"
	EventWall      EventType = "wall"
	EventBackboard EventType = "backboard"
	EventStopped   EventType = "stopped"
	EventRetired   EventType = "retired"
)

// Event records something a stone did during a tick, for sound, replay and logs.
type Event struct {
	Type     EventType `json:"type"`
	DiscID   string    `json:"disc_id"`
	TargetID string    `json:"target_id,omitempty"` // other stone for collisions
	Speed    float64   `json:"speed"`               // impact speed, or 0 for stop/retire
	Position Vec2      `json:"position"`
}

// stepper advances one tick over a private copy of the stones.
type stepper struct {
	cfg    Config
	discs  Set
	events []Event
}

// Step advances every moving stone by one tick and returns the new set. The input set is
// not modified.
func Step(set Set, cfg Config) Set {
	next, _ := StepWithEvents(set, cfg)
	return next
}

// StepWithEvents is Step that also reports collisions, wall bounces, stops and
// retirements that happened during the tick.
func StepWithEvents(set Set, cfg Config) (Set, []Event) {
	st := &stepper{cfg: cfg, discs: set.Clone()}
	st.integrate()
	st.resolveCollisions()
	st.retire()
	return st.discs, st.events
}

func (st *stepper) integrate() {
	cfg := st.cfg
	r := cfg.StoneRadius
	back := cfg.BackLineY - BackboardMargin

	for i := range st.discs {
		d := &st.discs[i]
		if !d.Moving {
			continue
		}

		pos := d.Position.Plus(d.Velocity)
		vel := d.Velocity.Times(cfg.Friction)

		if pos.X-r < 0 {
			pos.X = r
			st.record(EventWall, d.ID, "", vel.X, pos)
			vel.X = -vel.X * cfg.Restitution
		}
		if pos.X+r > cfg.SheetWidth {
			pos.X = cfg.SheetWidth - r
			st.record(EventWall, d.ID, "", vel.X, pos)
			vel.X = -vel.X * cfg.Restitution
		}

		// No far wall: stones may run off downrange and are retired instead.
		if pos.Y-r < back {
			pos.Y = back + r
			st.record(EventBackboard, d.ID, "", vel.Y, pos)
			vel.Y = -vel.Y * cfg.Restitution
		}

		d.Position = pos
		if vel.Magnitude() <= StopSpeed {
			d.Velocity = Vec2{}
			d.Moving = false
			st.record(EventStopped, d.ID, "", 0, pos)
		} else {
			d.Velocity = vel
			d.Moving = true
		}
	}
}

// resolveCollisions runs every unordered pair once in slot order. Later pairs see the
// positions and velocities written by earlier pairs in the same tick.
func (st *stepper) resolveCollisions() {
	for i := 0; i < len(st.discs); i++ {
		for j := i + 1; j < len(st.discs); j++ {
			st.resolvePair(&st.discs[i], &st.discs[j])
		}
	}
}

func (st *stepper) resolvePair(a, b *Disc) {
	minDist := 2 * st.cfg.StoneRadius
	delta := b.Position.Minus(a.Position)
	dist := delta.Magnitude()
	// NaN and zero distances have no usable normal.
	if !(dist > 0) || dist >= minDist {
		return
	}

	n := delta.Times(1 / dist)
	dvn := a.Velocity.Minus(b.Velocity).Dot(n)
	// Overlapping stones that are already separating are left embedded.
	if dvn <= 0 {
		return
	}

	impulse := n.Times(dvn * st.cfg.Restitution)
	sep := n.Times((minDist - dist) / 2)

	a.Position = a.Position.Minus(sep)
	b.Position = b.Position.Plus(sep)
	a.Velocity = a.Velocity.Minus(impulse)
	b.Velocity = b.Velocity.Plus(impulse)
	a.Moving = true
	b.Moving = true

	st.record(EventCollision, a.ID, b.ID, dvn, a.Position)
	st.record(EventCollision, b.ID, a.ID, dvn, b.Position)
}

// retire drops stones that came to rest short of play.
func (st *stepper) retire() {
	limit := st.cfg.HogLineY + RetireMargin
	kept := st.discs[:0]
	for _, d := range st.discs {
		if !d.Moving && d.Position.Y >= limit {
			st.record(EventRetired, d.ID, "", 0, d.Position)
			continue
		}
		kept = append(kept, d)
	}
	st.discs = kept
}

func (st *stepper) record(t EventType, id, target string, speed float64, pos Vec2) {
	if speed < 0 {
		speed = -speed
	}
	st.events = append(st.events, Event{Type: t, DiscID: id, TargetID: target, Speed: speed, Position: pos})
}
