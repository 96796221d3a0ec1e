package crossfade

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/clock"
	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/deck"
)

func TestCurveBoundaries(t *testing.T) {
	for _, c := range Curves {
		if got := c.Apply(0); got != 0 {
			t.Errorf("%s.Apply(0) = %v, want 0", c, got)
		}
		if got := c.Apply(1); got != 1 {
			t.Errorf("%s.Apply(1) = %v, want 1", c, got)
		}
		if got := c.Apply(-0.5); got != 0 {
			t.Errorf("%s.Apply(-0.5) = %v, want 0 (clamped)", c, got)
		}
		if got := c.Apply(1.5); got != 1 {
			t.Errorf("%s.Apply(1.5) = %v, want 1 (clamped)", c, got)
		}
	}
}

func TestCurveShapes(t *testing.T) {
	tests := []struct {
		curve    Curve
		progress float64
		want     float64
	}{
		{Linear, 0.25, 0.25},
		{Linear, 0.75, 0.75},
		{Smooth, 0.5, 0.5},
		{Smooth, 0.25, 0.15625},
		{Power, 0.25, 0.125},
		{Power, 0.5, math.Pow(0.5, 1.5)},
	}
	for _, tt := range tests {
		if got := tt.curve.Apply(tt.progress); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s.Apply(%v) = %v, want %v", tt.curve, tt.progress, got, tt.want)
		}
	}
}

func TestParseCurve(t *testing.T) {
	for _, c := range Curves {
		got, err := ParseCurve(strings.ToUpper(c.String()))
		if err != nil {
			t.Errorf("ParseCurve(%q) error = %v", c, err)
			continue
		}
		if got != c {
			t.Errorf("ParseCurve(%q) = %v, want %v", c, got, c)
		}
	}
	if _, err := ParseCurve("exponential"); err == nil {
		t.Error("ParseCurve(exponential) error = nil, want error")
	}
}

type testRig struct {
	decks  *deck.Decks
	sim    *binding.Simulator
	buses  *MeterBuses
	engine *Engine
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	sim := binding.NewSimulator(clk.Now, core.FullCapabilities())
	b := binding.New(sim, nil)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	decks := deck.New(b, nil)
	buses := NewMeterBuses()
	return &testRig{
		decks:  decks,
		sim:    sim,
		buses:  buses,
		engine: New(decks, b, buses, nil),
	}
}

func (r *testRig) activate(t *testing.T, l deck.Label) {
	t.Helper()
	track := &core.Track{ID: l.String(), URI: "spotify:track:" + l.String(), Duration: time.Minute}
	if err := r.decks.Load(l, track); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.decks.Prepare(l, 0); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := r.decks.Activate(context.Background(), l, false); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
}

func volumeCalls(sim *binding.Simulator) []string {
	var out []string
	for _, c := range sim.Calls() {
		if strings.HasPrefix(c, "volume ") {
			out = append(out, c)
		}
	}
	return out
}

func TestSetCrossfaderGains(t *testing.T) {
	r := newRig(t)
	r.engine.SetVolume(deck.A, 0.8)
	r.engine.SetVolume(deck.B, 0.5)

	g := r.engine.SetCrossfader(0.25)
	if math.Abs(g.A-0.6) > 1e-9 || math.Abs(g.B-0.125) > 1e-9 {
		t.Errorf("Gains = %+v, want A=0.6 B=0.125", g)
	}
	if r.buses.Gain(deck.A) != g.A || r.buses.Gain(deck.B) != g.B {
		t.Errorf("bus gains = %v/%v, want %v/%v", r.buses.Gain(deck.A), r.buses.Gain(deck.B), g.A, g.B)
	}

	if again := r.engine.SetCrossfader(0.25); again != g {
		t.Errorf("repeated SetCrossfader() = %+v, want %+v", again, g)
	}
}

func TestSetCrossfaderClamps(t *testing.T) {
	r := newRig(t)

	r.engine.SetCrossfader(1.7)
	if got := r.engine.Position(); got != 1 {
		t.Errorf("Position() = %v, want 1", got)
	}
	r.engine.SetCrossfader(-3)
	if got := r.engine.Position(); got != 0 {
		t.Errorf("Position() = %v, want 0", got)
	}
	r.engine.SetCrossfader(math.NaN())
	if got := r.engine.Position(); got != 0 {
		t.Errorf("Position() after NaN = %v, want 0", got)
	}

	g := r.engine.SetVolume(deck.B, 4)
	if got := r.decks.Snapshot(deck.B).Volume; got != 1 {
		t.Errorf("deck B Volume = %v, want 1", got)
	}
	if g.B != 0 {
		t.Errorf("Gains.B at position 0 = %v, want 0", g.B)
	}
}

func TestRemoteVolumeOnlyForActivePlayingDeck(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	// No deck is active: nothing reaches the remote.
	r.engine.SetCrossfader(0.5)
	r.engine.flushRemote(ctx)
	if calls := volumeCalls(r.sim); len(calls) != 0 {
		t.Fatalf("volume calls with no active deck = %v, want none", calls)
	}

	r.activate(t, deck.A)
	r.engine.SetVolume(deck.B, 0.2)
	r.engine.flushRemote(ctx)
	if got := r.sim.CurrentVolume(); got != 50 {
		t.Errorf("remote volume = %d, want 50 (deck A gain)", got)
	}

	// Changing only the inactive deck leaves deck A's gain alone.
	r.engine.SetVolume(deck.B, 0.9)
	r.engine.flushRemote(ctx)
	if calls := volumeCalls(r.sim); len(calls) != 1 {
		t.Errorf("volume calls = %v, want exactly one", calls)
	}

	// Paused active deck does not receive volume.
	if err := r.decks.PlayPause(ctx, deck.A); err != nil {
		t.Fatalf("PlayPause() error = %v", err)
	}
	r.engine.SetCrossfader(0.1)
	r.engine.flushRemote(ctx)
	if got := r.sim.CurrentVolume(); got != 50 {
		t.Errorf("remote volume while paused = %d, want 50", got)
	}
}

func TestRemoteVolumeCoalesced(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.activate(t, deck.A)

	for i := 0; i <= 100; i++ {
		r.engine.SetCrossfader(float64(i) / 200)
	}
	r.engine.flushRemote(ctx)

	calls := volumeCalls(r.sim)
	if len(calls) != 1 || calls[0] != "volume 50" {
		t.Errorf("volume calls = %v, want [volume 50]", calls)
	}

	// Same percent again is not resent.
	r.engine.SetCrossfader(0.501)
	r.engine.flushRemote(ctx)
	if calls := volumeCalls(r.sim); len(calls) != 1 {
		t.Errorf("volume calls after repeat = %v, want one", calls)
	}
}

func TestRunDeliversVolume(t *testing.T) {
	r := newRig(t)
	r.activate(t, deck.A)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.engine.Run(ctx) }()

	r.engine.SetCrossfader(0.3)

	deadline := time.Now().Add(2 * time.Second)
	for r.sim.CurrentVolume() != 70 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := r.sim.CurrentVolume(); got != 70 {
		t.Errorf("remote volume = %d, want 70", got)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRefreshFollowsActivation(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.decks.OnChange(func() { r.engine.Refresh() })

	r.engine.SetCrossfader(0.75)
	r.activate(t, deck.B)
	r.engine.flushRemote(ctx)

	if got := r.sim.CurrentVolume(); got != 75 {
		t.Errorf("remote volume after activating B = %d, want 75", got)
	}
}
