package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffdeck/internal/autofade"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/tui/styles"
)

// MixView is everything the crossfader panel shows.
type MixView struct {
	Position   float64
	Gains      crossfade.Gains
	Curve      crossfade.Curve
	AutoFade   bool
	Transition autofade.State
	Connected  bool
	Preview    bool
	Stale      bool
	LastSync   time.Time
}

// Crossfader displays the crossfader and transition state
type Crossfader struct{}

// NewCrossfader creates a new Crossfader component
func NewCrossfader() *Crossfader {
	return &Crossfader{}
}

// Render renders the crossfader panel
func (c *Crossfader) Render(v MixView, width int) string {
	track := width - 10
	if track < 10 {
		track = 10
	}

	fader := lipgloss.NewStyle().Foreground(styles.DeckA).Render("A ") +
		renderTrack(v.Position, track) +
		lipgloss.NewStyle().Foreground(styles.DeckB).Render(" B")

	return styles.Panel(false).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			fader,
			c.renderStatus(v),
		))
}

// renderTrack draws the fader slot with the knob at position.
func renderTrack(position float64, width int) string {
	knob := int(position*float64(width-1) + 0.5)
	if knob < 0 {
		knob = 0
	}
	if knob > width-1 {
		knob = width - 1
	}
	return styles.Dim.Render(strings.Repeat("─", knob)) +
		styles.Highlight.Render("█") +
		styles.Dim.Render(strings.Repeat("─", width-1-knob))
}

func (c *Crossfader) renderStatus(v MixView) string {
	parts := []string{fmt.Sprintf("%3.0f%%", v.Position*100)}

	if v.Transition.IsCrossfading {
		s := fmt.Sprintf("FADING %s %3.0f%%", v.Transition.Direction, v.Transition.Progress*100)
		if v.Transition.HandoffDone {
			s += " ⇄"
		}
		parts = append(parts, styles.Fading.Render(s))
	}

	auto := styles.Dim.Render("auto off")
	if v.AutoFade {
		auto = styles.Playing.Render("auto " + v.Curve.String())
	}
	parts = append(parts, auto)

	switch {
	case !v.Connected:
		parts = append(parts, styles.ErrorText.Render("offline"))
	case v.Stale:
		stale := "stale"
		if !v.LastSync.IsZero() {
			stale = fmt.Sprintf("stale %ds", int(time.Since(v.LastSync).Seconds()))
		}
		parts = append(parts, styles.Paused.Render(stale))
	}
	if v.Preview {
		parts = append(parts, styles.Paused.Render("preview"))
	}

	return strings.Join(parts, "  ")
}
