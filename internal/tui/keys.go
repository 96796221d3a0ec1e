package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayA       key.Binding
	PlayB       key.Binding
	CueA        key.Binding
	CueB        key.Binding
	FaderLeft   key.Binding
	FaderRight  key.Binding
	VolADown    key.Binding
	VolAUp      key.Binding
	VolBDown    key.Binding
	VolBUp      key.Binding
	Focus       key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	Load        key.Binding
	AutoFade    key.Binding
	Fade        key.Binding
	Cancel      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PlayA:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "play/pause A")),
		PlayB:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "play/pause B")),
		CueA:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "cue A at start")),
		CueB:        key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "cue B at start")),
		FaderLeft:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "fader to A")),
		FaderRight:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "fader to B")),
		VolADown:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "A volume down")),
		VolAUp:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "A volume up")),
		VolBDown:    key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "B volume down")),
		VolBUp:      key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "B volume up")),
		Focus:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch deck")),
		SeekBack:    key.NewBinding(key.WithKeys(","), key.WithHelp(",", "seek back")),
		SeekForward: key.NewBinding(key.WithKeys("."), key.WithHelp(".", "seek forward")),
		Load:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "load track")),
		AutoFade:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "auto-fade on/off")),
		Fade:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "crossfade now")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel fade")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayA, k.PlayB, k.FaderLeft, k.FaderRight, k.Fade, k.AutoFade, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayA, k.PlayB, k.CueA, k.CueB, k.Load},
		{k.FaderLeft, k.FaderRight, k.VolADown, k.VolAUp, k.VolBDown, k.VolBUp},
		{k.Focus, k.SeekBack, k.SeekForward},
		{k.Fade, k.Cancel, k.AutoFade, k.Help, k.Quit},
	}
}
