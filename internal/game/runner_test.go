package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niyoseris/curling/internal/curling"
)

func TestRunnerStopsAtTickBudget(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()
	m.PlayerThrow(drawShot)

	frames := 0
	r := &Runner{MaxTicks: 3}
	err := r.settle(context.Background(), m, func(msgType string, _ interface{}) {
		if msgType == MsgFrame {
			frames++
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if frames != 3 {
		t.Errorf("frames = %d, want 3", frames)
	}
	if m.CurrentPhase() != PhaseAIThinking {
		t.Errorf("phase = %s, want ai_thinking", m.CurrentPhase())
	}
}

func TestRunnerHonoursCancellation(t *testing.T) {
	m := newTestMatch(1, 1)
	m.Start()
	m.PlayerThrow(drawShot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{TickInterval: time.Hour}
	if err := r.Run(ctx, m, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestRunnerWaitsForAI(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()
	m.PlayerThrow(drawShot)

	var order []string
	r := &Runner{AIThinkDelay: 5 * time.Millisecond, MaxTicks: 5000}
	err := r.Run(context.Background(), m, func(msgType string, _ interface{}) {
		if msgType != MsgFrame {
			order = append(order, msgType)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{MsgGameUpdate, MsgAIShot, MsgGameUpdate}
	if len(order) != len(want) {
		t.Fatalf("messages = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("messages = %v, want %v", order, want)
		}
	}
	if m.CurrentPhase() != PhasePlaying {
		t.Errorf("phase = %s, want playing", m.CurrentPhase())
	}
}

func TestRunnerConcedeWhileAIThinks(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()
	m.PlayerThrow(drawShot)

	var order []string
	conceded := make(chan error, 1)
	r := &Runner{AIThinkDelay: 50 * time.Millisecond, MaxTicks: 5000}
	err := r.Run(context.Background(), m, func(msgType string, _ interface{}) {
		if msgType == MsgFrame {
			return
		}
		order = append(order, msgType)
		if msgType == MsgGameUpdate && m.CurrentPhase() == PhaseAIThinking {
			// Concede part way through the think delay.
			time.AfterFunc(5*time.Millisecond, func() { conceded <- m.Concede() })
		}
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if err := <-conceded; err != nil {
		t.Fatalf("Concede() = %v", err)
	}
	for _, msgType := range order {
		if msgType == MsgError || msgType == MsgAIShot {
			t.Errorf("unexpected %s in %v", msgType, order)
		}
	}
	if len(order) != 2 {
		t.Errorf("messages = %v, want two game updates", order)
	}
	if m.CurrentPhase() != PhaseGameOver {
		t.Errorf("phase = %s, want game_over", m.CurrentPhase())
	}
}

func TestSimulateToRest(t *testing.T) {
	cfg := curling.DefaultConfig()
	lp := cfg.LaunchPoint()
	stone, _ := curling.NewDisc("a", curling.SideRed, lp.X, lp.Y)
	set := curling.Set{curling.LaunchShot(stone, drawShot)}

	final, events, ticks := SimulateToRest(set, cfg, 5000)
	if ticks == 0 || curling.IsAnyMoving(final) {
		t.Fatalf("ticks=%d moving=%v", ticks, curling.IsAnyMoving(final))
	}
	if len(events) == 0 || events[len(events)-1].Type != curling.EventStopped {
		t.Errorf("last event should be a stop, got %+v", events)
	}
	if !set[0].Moving {
		t.Error("input set was modified")
	}

	halted, _, ticks := SimulateToRest(set, cfg, 2)
	if ticks != 2 || curling.IsAnyMoving(halted) || len(halted) != 0 {
		t.Errorf("budgeted run: ticks=%d stones=%+v", ticks, halted)
	}
}
