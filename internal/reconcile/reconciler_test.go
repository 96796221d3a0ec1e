package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/clock"
	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/deck"
)

type countingTrigger struct {
	calls int
}

func (c *countingTrigger) CheckTrigger(context.Context) bool {
	c.calls++
	return false
}

// hookRemote runs a callback between the query and its response.
type hookRemote struct {
	*binding.Binding
	beforeReturn func()
}

func (h *hookRemote) GetState(ctx context.Context) (*core.PlaybackState, error) {
	state, err := h.Binding.GetState(ctx)
	if h.beforeReturn != nil {
		h.beforeReturn()
	}
	return state, err
}

type rig struct {
	clk     *clock.Manual
	sim     *binding.Simulator
	binding *binding.Binding
	decks   *deck.Decks
	trigger *countingTrigger
	rec     *Reconciler
}

func newRig(t *testing.T) *rig {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	sim := binding.NewSimulator(clk.Now, core.FullCapabilities())
	b := binding.New(sim, nil)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	decks := deck.New(b, nil)
	trigger := &countingTrigger{}
	rec := New(b, decks, trigger, 0, nil)
	rec.now = clk.Now
	return &rig{clk: clk, sim: sim, binding: b, decks: decks, trigger: trigger, rec: rec}
}

func (r *rig) start(t *testing.T, l deck.Label, id string, d time.Duration) {
	t.Helper()
	uri := "spotify:track:" + id
	r.sim.AddTrack(uri, d)
	if err := r.decks.Load(l, &core.Track{ID: id, URI: uri, Duration: d}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.decks.Prepare(l, 0); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := r.decks.Activate(context.Background(), l, false); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
}

func TestTickNoActiveDeck(t *testing.T) {
	r := newRig(t)
	if r.rec.Tick(context.Background()) {
		t.Error("Tick() applied a sample with no active deck")
	}
	if r.trigger.calls != 0 {
		t.Errorf("trigger checks = %d, want 0", r.trigger.calls)
	}
	if r.rec.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", r.rec.Interval(), DefaultInterval)
	}
}

func TestTickAppliesPositionAndChecksTrigger(t *testing.T) {
	r := newRig(t)
	r.start(t, deck.A, "a", 3*time.Minute)

	r.clk.Advance(5 * time.Second)
	if !r.rec.Tick(context.Background()) {
		t.Fatal("Tick() = false, want applied")
	}

	a := r.decks.Snapshot(deck.A)
	if a.CurrentTimeSec != 5 {
		t.Errorf("CurrentTimeSec = %v, want 5", a.CurrentTimeSec)
	}
	if a.DurationSec != 180 {
		t.Errorf("DurationSec = %v, want 180", a.DurationSec)
	}
	if r.trigger.calls != 1 {
		t.Errorf("trigger checks = %d, want 1", r.trigger.calls)
	}
	if !r.rec.LastSync().Equal(r.clk.Now()) {
		t.Errorf("LastSync() = %v, want %v", r.rec.LastSync(), r.clk.Now())
	}
}

func TestTickIgnoresPausedPlayer(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.start(t, deck.A, "a", 3*time.Minute)
	r.clk.Advance(10 * time.Second)
	r.rec.Tick(ctx)

	if err := r.decks.PlayPause(ctx, deck.A); err != nil {
		t.Fatalf("PlayPause() error = %v", err)
	}
	r.sim.SetPosition(0)

	if r.rec.Tick(ctx) {
		t.Error("Tick() applied a paused sample")
	}
	if got := r.decks.Snapshot(deck.A).CurrentTimeSec; got != 10 {
		t.Errorf("CurrentTimeSec = %v, want 10 (paused deck untouched)", got)
	}
	if r.trigger.calls != 1 {
		t.Errorf("trigger checks = %d, want 1", r.trigger.calls)
	}
}

func TestTickSwallowsQueryErrors(t *testing.T) {
	r := newRig(t)
	r.start(t, deck.A, "a", 3*time.Minute)
	r.sim.FailState(errors.New("502 bad gateway"))

	r.clk.Advance(3 * time.Second)
	if r.rec.Tick(context.Background()) {
		t.Error("Tick() = true on query error")
	}
	if got := r.decks.Snapshot(deck.A).CurrentTimeSec; got != 0 {
		t.Errorf("CurrentTimeSec = %v, want 0", got)
	}

	r.sim.FailState(nil)
	if !r.rec.Tick(context.Background()) {
		t.Error("Tick() did not recover after the error cleared")
	}
}

func TestTickDiscardsOtherTrack(t *testing.T) {
	r := newRig(t)
	r.start(t, deck.A, "a", 3*time.Minute)

	// Something else took over the remote player.
	if err := r.sim.PlayTrack(context.Background(), "spotify:track:elsewhere", 90000); err != nil {
		t.Fatalf("PlayTrack() error = %v", err)
	}
	if r.rec.Tick(context.Background()) {
		t.Error("Tick() applied a sample for a different track")
	}
	if got := r.decks.Snapshot(deck.A).CurrentTimeSec; got != 0 {
		t.Errorf("CurrentTimeSec = %v, want 0", got)
	}
}

func TestTickDiscardsStaleResponse(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.start(t, deck.A, "a", 3*time.Minute)

	r.sim.AddTrack("spotify:track:b", 3*time.Minute)
	if err := r.decks.Load(deck.B, &core.Track{ID: "b", URI: "spotify:track:b", Duration: 3 * time.Minute}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.decks.Prepare(deck.B, 0); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	hook := &hookRemote{Binding: r.binding}
	hook.beforeReturn = func() {
		hook.beforeReturn = nil
		if err := r.decks.Activate(ctx, deck.B, false); err != nil {
			t.Errorf("Activate(B) error = %v", err)
		}
	}
	rec := New(hook, r.decks, r.trigger, 0, nil)

	r.clk.Advance(20 * time.Second)
	if rec.Tick(ctx) {
		t.Error("Tick() applied a response issued before the handoff")
	}
	if got := r.decks.Snapshot(deck.B).CurrentTimeSec; got != 0 {
		t.Errorf("deck B CurrentTimeSec = %v, want 0", got)
	}
	if r.trigger.calls != 0 {
		t.Errorf("trigger checks = %d, want 0", r.trigger.calls)
	}
}

func TestStale(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	if r.rec.Stale() {
		t.Error("Stale() = true with no active deck")
	}

	r.start(t, deck.A, "a", 3*time.Minute)
	r.clk.Advance(time.Second)
	r.rec.Tick(ctx)
	if r.rec.Stale() {
		t.Error("Stale() = true right after a sample")
	}

	r.sim.FailState(errors.New("timeout"))
	r.clk.Advance(900 * time.Millisecond)
	r.rec.Tick(ctx)
	if r.rec.Stale() {
		t.Error("Stale() = true before four periods passed")
	}

	r.clk.Advance(200 * time.Millisecond)
	r.rec.Tick(ctx)
	if !r.rec.Stale() {
		t.Error("Stale() = false after four missed periods")
	}
}

func drainUpdates(ch <-chan binding.Update) []binding.Update {
	var out []binding.Update
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestObserveSkipsPolledStates(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.start(t, deck.A, "a", 3*time.Minute)

	updates, cancel := r.binding.Subscribe()
	defer cancel()

	// A jump makes the binding publish the polled sample as well.
	r.sim.SetPosition(90 * time.Second)
	if !r.rec.Tick(ctx) {
		t.Fatal("Tick() = false, want applied")
	}

	queued := drainUpdates(updates)
	if len(queued) == 0 {
		t.Fatal("position jump was not published")
	}
	for _, u := range queued {
		if r.rec.Observe(ctx, u) {
			t.Errorf("Observe() re-applied %+v", u)
		}
	}
	if r.trigger.calls != 1 {
		t.Errorf("trigger checks for one sample = %d, want 1", r.trigger.calls)
	}
}

func TestObserveAfterHandoffSameTrack(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.start(t, deck.A, "same", 3*time.Minute)

	track := &core.Track{ID: "same", URI: "spotify:track:same", Duration: 3 * time.Minute}
	if err := r.decks.Load(deck.B, track); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.decks.Prepare(deck.B, 5000); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	updates, cancel := r.binding.Subscribe()
	defer cancel()

	hook := &hookRemote{Binding: r.binding}
	hook.beforeReturn = func() {
		hook.beforeReturn = nil
		if err := r.decks.Activate(ctx, deck.B, false); err != nil {
			t.Errorf("Activate(B) error = %v", err)
		}
	}
	rec := New(hook, r.decks, r.trigger, 0, nil)

	r.sim.SetPosition(27 * time.Second)
	if rec.Tick(ctx) {
		t.Error("Tick() applied a response issued before the handoff")
	}

	// Replay what Run would receive.
	for _, u := range drainUpdates(updates) {
		rec.Observe(ctx, u)
		if got := r.decks.Snapshot(deck.B).CurrentTimeSec; got == 27 {
			t.Fatalf("deck B took deck A's position from %+v", u)
		}
	}
	if got := r.decks.Snapshot(deck.B).CurrentTimeSec; got != 5 {
		t.Errorf("deck B CurrentTimeSec = %v, want 5 (cue)", got)
	}
}

func TestObserveDropsStatesFromBeforeLastPlay(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.start(t, deck.A, "a", 3*time.Minute)

	u := binding.Update{
		State: core.PlaybackState{TrackURI: "spotify:track:a", Position: 40 * time.Second},
		Seq:   r.binding.Seq() - 1,
	}
	if r.rec.Observe(ctx, u) {
		t.Error("Observe() applied a state requested before the last play")
	}

	u.Seq = r.binding.Seq()
	if !r.rec.Observe(ctx, u) {
		t.Error("Observe() rejected a current state")
	}
	if got := r.decks.Snapshot(deck.A).CurrentTimeSec; got != 40 {
		t.Errorf("CurrentTimeSec = %v, want 40", got)
	}
}

func TestRunAppliesNotifications(t *testing.T) {
	r := newRig(t)
	r.rec = New(r.binding, r.decks, r.trigger, time.Hour, nil)
	r.start(t, deck.A, "a", 3*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.rec.Run(ctx) }()

	// Replays on the binding produce notifications without a tick. Keep
	// replaying until Run has subscribed and applied one.
	deadline := time.Now().Add(2 * time.Second)
	pos := 60000
	for r.decks.Snapshot(deck.A).CurrentTimeSec < 60 && time.Now().Before(deadline) {
		if err := r.binding.Play(context.Background(), "spotify:track:a", pos); err != nil {
			t.Fatalf("Play() error = %v", err)
		}
		pos += 10000
		time.Sleep(5 * time.Millisecond)
	}
	if got := r.decks.Snapshot(deck.A).CurrentTimeSec; got < 60 {
		t.Errorf("CurrentTimeSec = %v, want >= 60", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
