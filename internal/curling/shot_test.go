package curling

import (
	"math"
	"testing"
)

func TestChooseShotBranches(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		set  Set
		want ShotKind
	}{
		{"empty sheet draws", nil, ShotDraw},
		{"opponent outside the house draws", Set{at(t, "r1", SideRed, 70)}, ShotDraw},
		{"opponent on the button is taken out", Set{at(t, "r1", SideRed, 5)}, ShotTakeout},
		{
			"opponent on the button ahead of ours is taken out",
			Set{at(t, "r1", SideRed, 10), at(t, "y1", SideYellow, 40)},
			ShotTakeout,
		},
		{
			"lying shot is guarded",
			Set{at(t, "y1", SideYellow, 10), at(t, "r1", SideRed, 30)},
			ShotGuard,
		},
		{
			"lying shot inside takeout radius is still guarded",
			Set{at(t, "y1", SideYellow, 5), at(t, "r1", SideRed, 15)},
			ShotGuard,
		},
		{
			"tie at the button goes to the lower id like Score",
			Set{at(t, "r1", SideRed, 15), at(t, "y1", SideYellow, 15)},
			ShotTakeout,
		},
		{
			"tie held by our lower id is guarded",
			Set{at(t, "b", SideRed, 15), at(t, "a", SideYellow, 15)},
			ShotGuard,
		},
		{"opponent in the house off the button", Set{at(t, "r1", SideRed, 30)}, ShotFallback},
		{
			"opponent closer but outside takeout radius",
			Set{at(t, "r1", SideRed, 30), at(t, "y1", SideYellow, 50)},
			ShotFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseShot(tt.set, SideYellow, cfg, 3, NewRand(7))
			if got.Kind != tt.want {
				t.Errorf("ChooseShot() kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}
}

func TestChooseShotIsDeterministicPerSeed(t *testing.T) {
	cfg := DefaultConfig()
	set := Set{at(t, "r1", SideRed, 30)}
	a := ChooseShot(set, SideYellow, cfg, 2, NewRand(42))
	b := ChooseShot(set, SideYellow, cfg, 2, NewRand(42))
	if a != b {
		t.Errorf("same seed produced %+v and %+v", a, b)
	}
}

func TestChooseShotStaysInRange(t *testing.T) {
	cfg := DefaultConfig()
	rng := NewRand(1)
	sides := []Side{SideRed, SideYellow}

	for i := 0; i < 1000; i++ {
		var set Set
		n := int(rng.Float64() * 8)
		for j := 0; j < n; j++ {
			x := cfg.StoneRadius + rng.Float64()*(cfg.SheetWidth-2*cfg.StoneRadius)
			y := rng.Float64() * cfg.SheetHeight
			set = append(set, mustDisc(t, string(rune('a'+j)), sides[j%2], x, y))
		}
		ai := sides[i%2]
		remaining := 1 + int(rng.Float64()*5)

		s := ChooseShot(set, ai, cfg, remaining, rng)
		if s.Power <= 0 || s.Power > 1 {
			t.Fatalf("iteration %d: power %v out of (0,1]", i, s.Power)
		}
		if err := s.Validate(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}

func TestDrawShotLandsInHouse(t *testing.T) {
	cfg := DefaultConfig()
	for seed := uint64(0); seed < 50; seed++ {
		shot := ChooseShot(nil, SideYellow, cfg, 5, NewRand(seed))
		lp := cfg.LaunchPoint()
		stone := mustDisc(t, "y1", SideYellow, lp.X, lp.Y)
		set := Set{LaunchShot(stone, shot)}

		var rest Vec2
		for tick := 0; IsAnyMoving(set); tick++ {
			if tick > 5000 {
				t.Fatalf("seed %d: stone never stopped", seed)
			}
			var events []Event
			set, events = StepWithEvents(set, cfg)
			for _, ev := range events {
				if ev.Type == EventStopped {
					rest = ev.Position
				}
			}
		}
		if d := cfg.DistanceToCenter(rest); d > HouseRadius {
			t.Errorf("seed %d: draw %+v came to rest %.1f from the center", seed, shot, d)
		}
	}
}

func TestDrawPower(t *testing.T) {
	cfg := DefaultConfig()
	from := cfg.LaunchPoint()
	got := DrawPower(from, cfg.HouseCenter, cfg)
	want := 450 * (1 - cfg.Friction) * DrawSlack / MaxLaunchSpeed
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("DrawPower() = %v, want %v", got, want)
	}
	if DrawPower(from, from, cfg) != 0 {
		t.Error("zero distance should need zero power")
	}
}

func TestAimAngle(t *testing.T) {
	from := Vec2{X: 150, Y: 570}
	if a := aimAngle(from, Vec2{X: 150, Y: 120}); a != 0 {
		t.Errorf("straight up = %v, want 0", a)
	}
	if a := aimAngle(from, Vec2{X: 250, Y: 470}); math.Abs(a-math.Pi/4) > 1e-12 {
		t.Errorf("diagonal = %v, want pi/4", a)
	}
	if a := aimAngle(from, Vec2{X: 50, Y: 470}); math.Abs(a+math.Pi/4) > 1e-12 {
		t.Errorf("diagonal left = %v, want -pi/4", a)
	}
}
