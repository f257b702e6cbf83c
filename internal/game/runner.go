package game

import (
	"context"
	"errors"
	"time"

	"github.com/niyoseris/curling/internal/curling"
)

// Message types emitted while a match is resolved.
const (
	MsgFrame      = "frame"
	MsgGameUpdate = "game_update"
	MsgEndScored  = "end_scored"
	MsgAIShot     = "ai_shot"
	MsgError      = "error"
)

// Emitter receives every message produced while a throw resolves.
type Emitter func(msgType string, payload interface{})

// Runner drives the tick loop for live matches.
type Runner struct {
	TickInterval time.Duration
	AIThinkDelay time.Duration
	MaxTicks     int
}

// Run ticks the stones in flight until they rest, settles the throw, and keeps going
// through any AI turns that follow. It returns when the player is due to act, the end or
// match is over, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, m *Match, emit Emitter) error {
	if emit == nil {
		emit = func(string, interface{}) {}
	}
	for {
		switch m.CurrentPhase() {
		case PhaseThrowing, PhaseAIThrowing:
			if err := r.settle(ctx, m, emit); err != nil {
				return err
			}
		case PhaseAIThinking:
			if err := sleep(ctx, r.AIThinkDelay); err != nil {
				return err
			}
			shot, err := m.AIThrow()
			if errors.Is(err, ErrWrongPhase) {
				// Conceded or reset while the AI was thinking.
				emit(MsgGameUpdate, m.StateFor(m.PlayerID))
				return nil
			}
			if err != nil {
				return err
			}
			emit(MsgAIShot, shot)
		default:
			return nil
		}
	}
}

// settle ticks one throw to rest and completes it.
func (r *Runner) settle(ctx context.Context, m *Match, emit Emitter) error {
	var ticker *time.Ticker
	if r.TickInterval > 0 {
		ticker = time.NewTicker(r.TickInterval)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := m.Tick()
		if errors.Is(err, ErrWrongPhase) {
			// Conceded or reset mid-throw.
			emit(MsgGameUpdate, m.StateFor(m.PlayerID))
			return nil
		}
		if err != nil {
			return err
		}
		emit(MsgFrame, frame)
		if !frame.Moving {
			break
		}
		if r.MaxTicks > 0 && frame.Tick >= r.MaxTicks {
			m.Halt()
			break
		}
	}

	end, err := m.ThrowComplete()
	if err != nil {
		return err
	}
	if end != nil {
		emit(MsgEndScored, end)
	}
	emit(MsgGameUpdate, m.StateFor(m.PlayerID))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SimulateToRest steps set until nothing moves or maxTicks is reached, and returns the
// final stones, every event along the way, and the number of ticks taken. Stones still
// moving at the budget are brought to rest in place.
func SimulateToRest(set curling.Set, cfg curling.Config, maxTicks int) (curling.Set, []curling.Event, int) {
	var all []curling.Event
	ticks := 0
	for curling.IsAnyMoving(set) {
		if maxTicks > 0 && ticks >= maxTicks {
			set = set.Clone()
			for i := range set {
				set[i].Velocity = curling.Vec2{}
				set[i].Moving = false
			}
			set = curling.Step(set, cfg)
			break
		}
		var events []curling.Event
		set, events = curling.StepWithEvents(set, cfg)
		all = append(all, events...)
		ticks++
	}
	return set, all, ticks
}
