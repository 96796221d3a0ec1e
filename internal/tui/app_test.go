package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/mixer"
	"github.com/tessro/riffdeck/internal/notify"
)

type fakeMixer struct {
	snap   mixer.Snapshot
	calls  []string
	events chan notify.Event
	err    error
}

func newFakeMixer() *fakeMixer {
	return &fakeMixer{events: make(chan notify.Event, 4)}
}

func (f *fakeMixer) record(s string) { f.calls = append(f.calls, s) }

func (f *fakeMixer) Snapshot() mixer.Snapshot { return f.snap }

func (f *fakeMixer) Events() (<-chan notify.Event, func()) {
	return f.events, func() {}
}

func (f *fakeMixer) LoadTrack(l deck.Label, t *core.Track) error {
	f.record("load " + l.String() + " " + t.URI)
	f.snap.Decks[l].Track = t
	return f.err
}

func (f *fakeMixer) Prepare(l deck.Label, cueMs int) error {
	f.record("prepare " + l.String())
	return f.err
}

func (f *fakeMixer) PlayPause(ctx context.Context, l deck.Label) error {
	f.record("playpause " + l.String())
	return f.err
}

func (f *fakeMixer) Seek(ctx context.Context, l deck.Label, sec float64) error {
	f.record("seek " + l.String())
	f.snap.Decks[l].CurrentTimeSec = sec
	return f.err
}

func (f *fakeMixer) NudgeCrossfader(delta float64) crossfade.Gains {
	f.snap.Crossfader = core.Clamp01(f.snap.Crossfader + delta)
	return crossfade.Compute(f.snap.Crossfader, 1, 1)
}

func (f *fakeMixer) NudgeVolume(l deck.Label, delta float64) crossfade.Gains {
	f.snap.Decks[l].Volume = core.Clamp01(f.snap.Decks[l].Volume + delta)
	return crossfade.Gains{}
}

func (f *fakeMixer) ToggleAutoCrossfade() (bool, error) {
	f.snap.AutoFade = !f.snap.AutoFade
	return f.snap.AutoFade, nil
}

func (f *fakeMixer) StartCrossfade() (deck.Direction, error) {
	f.record("fade")
	return deck.AToB, f.err
}

func (f *fakeMixer) CancelCrossfade() bool {
	f.record("cancel")
	return true
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(k))
		m = next.(Model)
	}
	return m, cmd
}

func newTestModel(f *fakeMixer, lookup LookupFunc) Model {
	m := NewModel(NewApp(f, lookup, 0))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func TestCrossfaderKeys(t *testing.T) {
	f := newFakeMixer()
	m := newTestModel(f, nil)

	m, _ = press(t, m, "right", "right", "l")
	if got := m.snap.Crossfader; got < 0.149 || got > 0.151 {
		t.Errorf("crossfader = %v, want 0.15", got)
	}
	m, _ = press(t, m, "left")
	if got := m.snap.Crossfader; got < 0.099 || got > 0.101 {
		t.Errorf("crossfader = %v, want 0.1", got)
	}
}

func TestPlayPauseRunsAsCommand(t *testing.T) {
	f := newFakeMixer()
	m := newTestModel(f, nil)

	_, cmd := press(t, m, "b")
	if cmd == nil {
		t.Fatal("play/pause returned no command")
	}
	if len(f.calls) != 0 {
		t.Fatalf("calls before command ran = %v", f.calls)
	}
	if msg := cmd(); msg != nil {
		t.Errorf("command msg = %v, want nil", msg)
	}
	if len(f.calls) != 1 || f.calls[0] != "playpause B" {
		t.Errorf("calls = %v, want [playpause B]", f.calls)
	}
}

func TestCommandErrorShowsInStatusBar(t *testing.T) {
	f := newFakeMixer()
	f.err = errors.New("no active device")
	m := newTestModel(f, nil)

	_, cmd := press(t, m, "a")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if m.lastError == nil {
		t.Fatal("lastError = nil after failed command")
	}
	if !strings.Contains(m.View(), "no active device") {
		t.Error("View() does not show the error")
	}
}

func TestToggleAutoFadeAndManualFade(t *testing.T) {
	f := newFakeMixer()
	m := newTestModel(f, nil)

	m, _ = press(t, m, "x")
	if !m.snap.AutoFade {
		t.Error("AutoFade = false after x")
	}
	_, _ = press(t, m, "f", "esc")
	if strings.Join(f.calls, ",") != "fade,cancel" {
		t.Errorf("calls = %v, want [fade cancel]", f.calls)
	}
}

func TestLoadTrackOnFocusedDeck(t *testing.T) {
	f := newFakeMixer()
	lookup := func(ctx context.Context, ref string) (*core.Track, error) {
		return &core.Track{URI: "spotify:track:" + ref, Title: ref}, nil
	}
	m := newTestModel(f, lookup)

	m, _ = press(t, m, "tab", "o")
	if !m.loading {
		t.Fatal("loading = false after o")
	}
	m, _ = press(t, m, "a", "b", "c")
	if len(f.calls) != 0 {
		t.Fatalf("keys typed into the prompt reached the mixer: %v", f.calls)
	}

	m, cmd := press(t, m, "enter")
	if m.loading {
		t.Error("loading = true after enter")
	}
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	next, _ := m.Update(cmd())
	m = next.(Model)

	want := []string{"load B spotify:track:abc", "prepare B"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
	if m.snap.Decks[deck.B].Track == nil {
		t.Error("deck B has no track after load")
	}
}

func TestSeekFocusedDeck(t *testing.T) {
	f := newFakeMixer()
	f.snap.Decks[deck.A].Track = &core.Track{URI: "spotify:track:a"}
	f.snap.Decks[deck.A].IsActive = true
	f.snap.Decks[deck.A].CurrentTimeSec = 5
	m := newTestModel(f, nil)

	_, cmd := press(t, m, ",")
	if cmd == nil {
		t.Fatal("seek returned no command")
	}
	cmd()
	if got := f.snap.Decks[deck.A].CurrentTimeSec; got != 0 {
		t.Errorf("seek target = %v, want 0", got)
	}

	// Nothing loaded on B: no seek.
	_, cmd = press(t, m, "tab", ".")
	if cmd != nil {
		t.Error("seek on empty deck returned a command")
	}
}

func TestEventsReachTheLog(t *testing.T) {
	f := newFakeMixer()
	m := newTestModel(f, nil)

	f.events <- notify.Event{Kind: notify.KindStart, Direction: deck.AToB}
	msg := m.waitForEvent()()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if m.log.Len() != 1 {
		t.Errorf("log length = %d, want 1", m.log.Len())
	}
	if cmd == nil {
		t.Error("event handling did not wait for the next event")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(newFakeMixer(), nil)
	m, cmd := press(t, m, "q")
	if !m.quitting || cmd == nil {
		t.Errorf("quitting = %v, cmd nil = %v", m.quitting, cmd == nil)
	}
	if m.View() != "" {
		t.Error("View() not empty after quit")
	}
}
