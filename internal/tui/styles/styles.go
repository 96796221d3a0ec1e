package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors - a pleasant color palette
var (
	// Primary colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Accent    = lipgloss.Color("#F59E0B") // Amber

	// Deck colors
	DeckA = lipgloss.Color("#3B82F6") // Blue
	DeckB = lipgloss.Color("#EC4899") // Pink

	// Status colors
	Success = lipgloss.Color("#10B981") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red

	// Neutral colors adapt to the terminal background
	Border    = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
	Text      = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	TextMuted = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	TextDim   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

	// Spotify green
	SpotifyGreen = lipgloss.Color("#1DB954")
)

// Text styles
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Subtitle = lipgloss.NewStyle().
		Foreground(TextMuted)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Highlight = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Playing = lipgloss.NewStyle().
		Foreground(SpotifyGreen)

	Paused = lipgloss.NewStyle().
		Foreground(Warning)

	Fading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)

	ErrorText = lipgloss.NewStyle().
		Foreground(Error)
)

// Border styles
var (
	BorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border)

	FocusedBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary)
)

// SetTheme forces a light or dark palette. "auto" and "" keep the
// detected terminal background.
func SetTheme(name string) {
	switch name {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}

// Panel creates a styled panel with optional focus
func Panel(focused bool) lipgloss.Style {
	if focused {
		return FocusedBorder.Padding(0, 1)
	}
	return BorderStyle.Padding(0, 1)
}

// PanelTitle creates a styled panel title
func PanelTitle(title string, focused bool) string {
	style := Label
	if focused {
		style = Highlight
	}
	return style.Render(" " + title + " ")
}

// DeckColor returns the accent color of deck "A" or "B".
func DeckColor(label string) lipgloss.Color {
	if label == "B" {
		return DeckB
	}
	return DeckA
}

// Meter draws level in [0,1] as a bar width cells wide.
func Meter(level float64, width int, color lipgloss.TerminalColor) string {
	filled := int(level*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(Border)

	return filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("─", width-filled))
}

// StatusIcon returns an icon for playback status
func StatusIcon(playing bool) string {
	if playing {
		return Playing.Render("▶")
	}
	return Paused.Render("⏸")
}
