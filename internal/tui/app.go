// Package tui is the interactive mixing console.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/mixer"
	"github.com/tessro/riffdeck/internal/notify"
	"github.com/tessro/riffdeck/internal/tui/components"
	"github.com/tessro/riffdeck/internal/tui/styles"
)

const (
	faderStep   = 0.05
	volumeStep  = 0.05
	seekStep    = 10.0
	cmdTimeout  = 10 * time.Second
	errorExpiry = 5 * time.Second
)

// Mixer is the part of the mixer the console drives.
type Mixer interface {
	Snapshot() mixer.Snapshot
	Events() (<-chan notify.Event, func())
	LoadTrack(l deck.Label, track *core.Track) error
	Prepare(l deck.Label, cueMs int) error
	PlayPause(ctx context.Context, l deck.Label) error
	Seek(ctx context.Context, l deck.Label, sec float64) error
	NudgeCrossfader(delta float64) crossfade.Gains
	NudgeVolume(l deck.Label, delta float64) crossfade.Gains
	ToggleAutoCrossfade() (bool, error)
	StartCrossfade() (deck.Direction, error)
	CancelCrossfade() bool
}

// LookupFunc resolves what the operator typed into a track.
type LookupFunc func(ctx context.Context, ref string) (*core.Track, error)

// App holds the TUI application dependencies
type App struct {
	mixer       Mixer
	lookup      LookupFunc
	refreshRate time.Duration
}

// NewApp creates a new TUI application
func NewApp(m Mixer, lookup LookupFunc, refreshRate time.Duration) *App {
	if refreshRate <= 0 {
		refreshRate = 100 * time.Millisecond
	}
	return &App{mixer: m, lookup: lookup, refreshRate: refreshRate}
}

// Model is the main TUI model
type Model struct {
	app     *App
	width   int
	height  int
	focused deck.Label

	snap mixer.Snapshot

	// Components
	decks [2]*components.DeckPanel
	fader *components.Crossfader
	log   *components.EventLog
	keys  keyMap
	help  help.Model

	events      <-chan notify.Event
	unsubscribe func()

	showHelp  bool
	loading   bool
	loadInput textinput.Model

	// Error handling
	lastError   error
	errorExpiry time.Time

	quitting bool
}

// NewModel creates a new TUI model subscribed to the mixer's events.
func NewModel(app *App) Model {
	ti := textinput.New()
	ti.Placeholder = "spotify:track:…, a track link, or an ID"
	ti.CharLimit = 200
	ti.Width = 50

	events, unsubscribe := app.mixer.Events()
	return Model{
		app:         app,
		focused:     deck.A,
		snap:        app.mixer.Snapshot(),
		decks:       [2]*components.DeckPanel{components.NewDeckPanel(deck.A), components.NewDeckPanel(deck.B)},
		fader:       components.NewCrossfader(),
		log:         components.NewEventLog(),
		keys:        defaultKeyMap(),
		help:        help.New(),
		events:      events,
		unsubscribe: unsubscribe,
		loadInput:   ti,
	}
}

// Messages
type tickMsg time.Time
type eventMsg notify.Event
type eventsClosedMsg struct{}
type errMsg error
type loadedMsg struct {
	label deck.Label
	track *core.Track
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.app.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

// run performs a blocking mixer call off the UI goroutine.
func run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitForEvent())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snap = m.app.mixer.Snapshot()
		if m.lastError != nil && time.Time(msg).After(m.errorExpiry) {
			m.lastError = nil
		}
		return m, m.tick()

	case eventMsg:
		m.log.Add(notify.Event(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		return m, nil

	case loadedMsg:
		if err := m.app.mixer.LoadTrack(msg.label, msg.track); err != nil {
			return m.fail(err), nil
		}
		if err := m.app.mixer.Prepare(msg.label, 0); err != nil {
			return m.fail(err), nil
		}
		m.snap = m.app.mixer.Snapshot()
		return m, nil

	case errMsg:
		return m.fail(msg), nil
	}

	if m.loading {
		var cmd tea.Cmd
		m.loadInput, cmd = m.loadInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) fail(err error) Model {
	m.lastError = err
	m.errorExpiry = time.Now().Add(errorExpiry)
	return m
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.loading {
		return m.handleLoadKeyPress(msg)
	}

	mx := m.app.mixer
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Help):
		m.showHelp = true
	case key.Matches(msg, k.Focus):
		m.focused = m.focused.Other()

	case key.Matches(msg, k.PlayA):
		return m, run(func(ctx context.Context) error { return mx.PlayPause(ctx, deck.A) })
	case key.Matches(msg, k.PlayB):
		return m, run(func(ctx context.Context) error { return mx.PlayPause(ctx, deck.B) })
	case key.Matches(msg, k.CueA):
		return m.do(mx.Prepare(deck.A, 0))
	case key.Matches(msg, k.CueB):
		return m.do(mx.Prepare(deck.B, 0))

	case key.Matches(msg, k.FaderLeft):
		mx.NudgeCrossfader(-faderStep)
	case key.Matches(msg, k.FaderRight):
		mx.NudgeCrossfader(faderStep)
	case key.Matches(msg, k.VolADown):
		mx.NudgeVolume(deck.A, -volumeStep)
	case key.Matches(msg, k.VolAUp):
		mx.NudgeVolume(deck.A, volumeStep)
	case key.Matches(msg, k.VolBDown):
		mx.NudgeVolume(deck.B, -volumeStep)
	case key.Matches(msg, k.VolBUp):
		mx.NudgeVolume(deck.B, volumeStep)

	case key.Matches(msg, k.SeekBack):
		return m, m.seek(-seekStep)
	case key.Matches(msg, k.SeekForward):
		return m, m.seek(seekStep)

	case key.Matches(msg, k.Load):
		if m.app.lookup == nil {
			return m.fail(errors.New("track loading is not available")), nil
		}
		m.loading = true
		m.loadInput.SetValue("")
		m.loadInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, k.AutoFade):
		_, err := mx.ToggleAutoCrossfade()
		return m.do(err)
	case key.Matches(msg, k.Fade):
		_, err := mx.StartCrossfade()
		return m.do(err)
	case key.Matches(msg, k.Cancel):
		mx.CancelCrossfade()
	}

	m.snap = mx.Snapshot()
	return m, nil
}

func (m Model) do(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		return m.fail(err), nil
	}
	m.snap = m.app.mixer.Snapshot()
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

// seek moves the focused deck by delta seconds from where it is shown.
func (m Model) seek(delta float64) tea.Cmd {
	d := m.snap.Decks[m.focused]
	if d.Track == nil {
		return nil
	}
	pos := d.LastPlayedPositionSec
	if d.IsActive {
		pos = d.CurrentTimeSec
	}
	target := pos + delta
	if target < 0 {
		target = 0
	}
	l := m.focused
	mx := m.app.mixer
	return run(func(ctx context.Context) error { return mx.Seek(ctx, l, target) })
}

func (m Model) handleLoadKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.loading = false
		m.loadInput.Blur()
		return m, nil

	case tea.KeyEnter:
		ref := strings.TrimSpace(m.loadInput.Value())
		m.loading = false
		m.loadInput.Blur()
		if ref == "" {
			return m, nil
		}
		l := m.focused
		lookup := m.app.lookup
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
			defer cancel()
			track, err := lookup(ctx, ref)
			if err != nil {
				return errMsg(err)
			}
			return loadedMsg{label: l, track: track}
		}
	}

	var cmd tea.Cmd
	m.loadInput, cmd = m.loadInput.Update(msg)
	return m, cmd
}

// View renders the console
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	deckWidth := m.width / 2
	deckHeight := 13
	deckA := m.decks[deck.A].Render(m.deckView(deck.A), deckWidth-2, deckHeight, m.focused == deck.A)
	deckB := m.decks[deck.B].Render(m.deckView(deck.B), m.width-deckWidth-2, deckHeight, m.focused == deck.B)
	decks := lipgloss.JoinHorizontal(lipgloss.Top, deckA, deckB)

	fader := m.fader.Render(components.MixView{
		Position:   m.snap.Crossfader,
		Gains:      m.snap.Gains,
		Curve:      m.snap.Curve,
		AutoFade:   m.snap.AutoFade,
		Transition: m.snap.Transition,
		Connected:  m.snap.Connected,
		Preview:    m.snap.Connected && !m.snap.Capabilities.FullPlayback,
		Stale:      m.snap.Stale,
		LastSync:   m.snap.LastSync,
	}, m.width-2)

	logHeight := m.height - deckHeight - lipgloss.Height(fader) - 4
	if logHeight < 4 {
		logHeight = 4
	}
	log := m.log.Render(m.width-2, logHeight)

	sections := []string{decks, fader, log}
	if m.loading {
		sections = append(sections, m.renderLoad())
	}
	sections = append(sections, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) deckView(l deck.Label) components.DeckView {
	d := m.snap.Decks[l]
	return components.DeckView{
		Deck:     d,
		Gain:     m.snap.Gains.For(l),
		Playable: m.snap.Capabilities.PlayableDuration(d.Track),
		Effects:  m.snap.Effects[l],
	}
}

func (m Model) renderLoad() string {
	title := styles.Highlight.Render("Load deck " + m.focused.String() + ": ")
	return lipgloss.NewStyle().Padding(0, 1).Render(title + m.loadInput.View())
}

func (m Model) renderStatusBar() string {
	status := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.lastError != nil {
		status = styles.ErrorText.Render("Error: " + m.lastError.Error())
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := styles.Title.Render("Riffdeck - Keyboard Shortcuts")
	body := m.help.FullHelpView(m.keys.FullHelp())
	footer := styles.Dim.Render("Press ? or Esc to close")

	content := lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Render(content))
}

// Run starts the console and blocks until the operator quits.
func Run(m Mixer, lookup LookupFunc, refreshRate time.Duration, theme string) error {
	styles.SetTheme(theme)
	model := NewModel(NewApp(m, lookup, refreshRate))
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
