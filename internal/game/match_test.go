package game

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/niyoseris/curling/internal/curling"
)

func newTestMatch(ends, stones int) *Match {
	s := DefaultSettings()
	s.TotalEnds = ends
	s.StonesPerTeam = stones
	s.Seed = 11
	return NewMatch("match_test", "tok", 1, "Tester", s)
}

var drawShot = curling.Shot{Power: 0.86, Angle: 0, Curl: 0}

// headless resolves throws without waiting between ticks.
var headless = &Runner{MaxTicks: 5000}

func TestMatchRejectsThrowBeforeStart(t *testing.T) {
	m := newTestMatch(1, 1)
	if _, err := m.PlayerThrow(drawShot); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("PlayerThrow() at menu = %v, want ErrWrongPhase", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("second Start() = %v, want ErrWrongPhase", err)
	}
	if m.Phase != PhasePlaying || m.RedLeft != 1 || m.YellowLeft != 1 || m.CurrentEnd != 1 {
		t.Errorf("unexpected state after start: %+v", m.StateFor(1))
	}
}

func TestPlayerThrowValidatesAndClamps(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()

	if _, err := m.PlayerThrow(curling.Shot{Power: math.NaN()}); !errors.Is(err, curling.ErrInvalidShot) {
		t.Errorf("NaN power = %v, want ErrInvalidShot", err)
	}
	shot, err := m.PlayerThrow(curling.Shot{Power: 5, Kind: curling.ShotTakeout})
	if err != nil {
		t.Fatalf("PlayerThrow: %v", err)
	}
	if shot.Power != 1 || shot.Kind != "" {
		t.Errorf("thrown shot = %+v, want power clamped to 1 and no kind", shot)
	}
	if m.Phase != PhaseThrowing || m.RedLeft != 1 {
		t.Errorf("phase=%s red_left=%d after throw", m.Phase, m.RedLeft)
	}
	if len(m.Stones) != 1 || m.Stones[0].ID != "e1-s1" || !m.Stones[0].Moving {
		t.Errorf("unexpected stones %+v", m.Stones)
	}
	if _, err := m.ThrowComplete(); !errors.Is(err, ErrStonesMoving) {
		t.Errorf("ThrowComplete() while moving = %v, want ErrStonesMoving", err)
	}
}

func TestTurnsAlternate(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()
	if _, err := m.PlayerThrow(drawShot); err != nil {
		t.Fatal(err)
	}
	for m.CurrentPhase() == PhaseThrowing {
		if _, err := m.Tick(); err != nil {
			t.Fatal(err)
		}
		if !curling.IsAnyMoving(m.Stones) {
			break
		}
	}
	if _, err := m.ThrowComplete(); err != nil {
		t.Fatal(err)
	}
	if m.Phase != PhaseAIThinking || m.Turn != AISide {
		t.Fatalf("after player throw: phase=%s turn=%s", m.Phase, m.Turn)
	}
	if _, err := m.PlayerThrow(drawShot); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("player throw on AI turn = %v", err)
	}

	shot, err := m.AIThrow()
	if err != nil {
		t.Fatal(err)
	}
	if shot.Power <= 0 || shot.Power > 1 || shot.Kind == "" {
		t.Errorf("unexpected AI shot %+v", shot)
	}
	if m.Phase != PhaseAIThrowing || m.YellowLeft != 1 {
		t.Errorf("after AI throw: phase=%s yellow_left=%d", m.Phase, m.YellowLeft)
	}
	last := m.Stones[len(m.Stones)-1]
	if last.ID != "e1-s2" || last.Side != AISide {
		t.Errorf("AI stone = %+v", last)
	}
}

func TestFullMatchReachesGameOver(t *testing.T) {
	m := newTestMatch(2, 2)
	m.Start()

	counts := map[string]int{}
	emit := func(msgType string, _ interface{}) { counts[msgType]++ }

	for m.CurrentPhase() != PhaseGameOver {
		switch m.CurrentPhase() {
		case PhasePlaying:
			if _, err := m.PlayerThrow(drawShot); err != nil {
				t.Fatal(err)
			}
			if err := headless.Run(context.Background(), m, emit); err != nil {
				t.Fatal(err)
			}
		case PhaseEndSummary:
			if err := m.NextEnd(); err != nil {
				t.Fatal(err)
			}
			if m.CurrentEnd != 2 || len(m.Stones) != 0 || m.RedLeft != 2 {
				t.Fatalf("next end not reset: %+v", m.StateFor(1))
			}
		default:
			t.Fatalf("unexpected phase %s", m.CurrentPhase())
		}
	}

	if len(m.EndScores) != 2 {
		t.Fatalf("end scores = %+v, want 2 ends", m.EndScores)
	}
	red, yellow := 0, 0
	for _, es := range m.EndScores {
		if es.Red > 0 && es.Yellow > 0 {
			t.Errorf("both sides scored in end %d", es.End)
		}
		red += es.Red
		yellow += es.Yellow
	}
	if red != m.RedTotal || yellow != m.YellowTotal {
		t.Errorf("totals %d-%d do not match ends %d-%d", m.RedTotal, m.YellowTotal, red, yellow)
	}
	if m.Status != StatusCompleted || m.CompletedAt == nil || m.Winner == "" {
		t.Errorf("unexpected finish: status=%s winner=%q", m.Status, m.Winner)
	}
	if counts[MsgEndScored] != 2 || counts[MsgAIShot] != 4 || counts[MsgFrame] == 0 {
		t.Errorf("unexpected message counts %v", counts)
	}
}

func TestWinnerByTotals(t *testing.T) {
	tests := []struct {
		red, yellow int
		want        string
	}{
		{3, 1, "red"},
		{0, 2, "yellow"},
		{2, 2, WinnerDraw},
		{0, 0, WinnerDraw},
	}
	for _, tt := range tests {
		m := newTestMatch(1, 1)
		m.RedTotal, m.YellowTotal = tt.red, tt.yellow
		m.finish()
		if m.Winner != tt.want || m.Phase != PhaseGameOver {
			t.Errorf("%d-%d: winner=%q phase=%s, want %q", tt.red, tt.yellow, m.Winner, m.Phase, tt.want)
		}
	}
}

func TestConcede(t *testing.T) {
	m := newTestMatch(4, 5)
	if err := m.Concede(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Concede() at menu = %v", err)
	}
	m.Start()
	m.RedTotal = 5
	m.PlayerThrow(drawShot)
	if err := m.Concede(); err != nil {
		t.Fatalf("Concede: %v", err)
	}
	if m.Winner != string(AISide) || !m.Conceded || m.Phase != PhaseGameOver {
		t.Errorf("after concede: winner=%q conceded=%v phase=%s", m.Winner, m.Conceded, m.Phase)
	}
	if curling.IsAnyMoving(m.Stones) {
		t.Error("conceding should bring stones to rest")
	}
	if _, err := m.Tick(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Tick() after concede = %v", err)
	}
}

func TestReturnToMenu(t *testing.T) {
	m := newTestMatch(1, 1)
	m.Start()
	m.PlayerThrow(drawShot)
	if err := m.ReturnToMenu(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("ReturnToMenu() mid-throw = %v", err)
	}
	m.Halt()
	m.ThrowComplete()
	if err := m.ReturnToMenu(); err != nil {
		t.Fatalf("ReturnToMenu: %v", err)
	}
	if m.Phase != PhaseMenu || len(m.Stones) != 0 || m.Status != StatusWaiting {
		t.Errorf("menu state not reset: %+v", m.StateFor(1))
	}
	if err := m.Start(); err != nil {
		t.Errorf("Start() after menu: %v", err)
	}
}

func TestHaltRetiresShortStones(t *testing.T) {
	m := newTestMatch(1, 2)
	m.Start()
	m.PlayerThrow(drawShot)
	m.Tick()
	m.Halt()
	if len(m.Stones) != 0 {
		t.Errorf("stone halted near the launch point should be retired, got %+v", m.Stones)
	}
	if _, err := m.ThrowComplete(); err != nil {
		t.Errorf("ThrowComplete after halt: %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	m := newTestMatch(2, 2)
	m.Start()
	m.PlayerThrow(drawShot)
	headless.Run(context.Background(), m, nil)

	data, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	got, err := RestoreMatch(data)
	if err != nil {
		t.Fatalf("RestoreMatch: %v", err)
	}
	if got.Token != m.Token || got.Phase != m.Phase || got.ThrowNumber != m.ThrowNumber {
		t.Errorf("restored %s/%s/%d, want %s/%s/%d", got.Token, got.Phase, got.ThrowNumber, m.Token, m.Phase, m.ThrowNumber)
	}
	if len(got.Stones) != len(m.Stones) || got.Settings != m.Settings {
		t.Errorf("restored stones or settings differ")
	}

	if _, err := RestoreMatch([]byte(`{"settings":{"total_ends":0}}`)); err == nil {
		t.Error("invalid settings should not restore")
	}
}

func TestAIThrowIsDeterministicPerSeed(t *testing.T) {
	throwOnce := func() curling.Shot {
		m := newTestMatch(1, 2)
		m.Start()
		m.PlayerThrow(drawShot)
		headless.settle(context.Background(), m, func(string, interface{}) {})
		shot, err := m.AIThrow()
		if err != nil {
			t.Fatal(err)
		}
		return shot
	}
	if a, b := throwOnce(), throwOnce(); a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
}

func TestAuthorize(t *testing.T) {
	owned := NewMatch("m1", "tok", 7, "Ann", DefaultSettings())
	if err := owned.Authorize(7); err != nil {
		t.Errorf("owner rejected: %v", err)
	}
	if err := owned.Authorize(8); !errors.Is(err, ErrNotYourMatch) {
		t.Errorf("expected ErrNotYourMatch, got %v", err)
	}

	anon := NewMatch("m2", "tok2", 0, "", DefaultSettings())
	if err := anon.Authorize(8); err != nil {
		t.Errorf("anonymous match should accept any player: %v", err)
	}
}
