package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/effects"
	"github.com/tessro/riffdeck/internal/tui/styles"
)

// DeckView is everything the deck panel shows.
type DeckView struct {
	Deck     deck.Deck
	Gain     float64
	Playable time.Duration
	Effects  []effects.Descriptor
}

// DeckPanel displays one deck
type DeckPanel struct {
	bar progress.Model
}

// NewDeckPanel creates a panel drawn in the deck's color
func NewDeckPanel(l deck.Label) *DeckPanel {
	color := string(styles.DeckColor(l.String()))
	return &DeckPanel{
		bar: progress.New(progress.WithSolidFill(color), progress.WithoutPercentage()),
	}
}

// Render renders the deck panel
func (p *DeckPanel) Render(v DeckView, width, height int, focused bool) string {
	d := v.Deck
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.DeckColor(d.Label.String())).
		Render(" DECK " + d.Label.String() + " ")
	if focused {
		title += styles.Highlight.Render("◆")
	}

	var content string
	if d.Track == nil {
		content = styles.Muted.Render("Empty. Press o to load a track")
	} else {
		content = p.renderTrack(v, width-4)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (p *DeckPanel) renderTrack(v DeckView, width int) string {
	d := v.Deck
	track := d.Track

	icon := styles.StatusIcon(d.IsPlaying)
	titleStyle := styles.Title.Width(width - 4)
	title := titleStyle.Render(track.Title)
	artist := styles.Subtitle.Render(track.Artist)

	progressWidth := width - 14 // times on either side
	if progressWidth < 10 {
		progressWidth = 10
	}
	p.bar.Width = progressWidth

	position := d.CurrentTimeSec
	if !d.IsActive {
		position = d.LastPlayedPositionSec
	}
	total := v.Playable.Seconds()
	pct := 0.0
	if total > 0 {
		pct = core.Clamp01(position / total)
	}
	progressLine := fmt.Sprintf("%s %s %s",
		formatSeconds(position), p.bar.ViewAs(pct), formatSeconds(total))

	gain := fmt.Sprintf("vol %3.0f%%  out %s %3.0f%%",
		d.Volume*100,
		styles.Meter(v.Gain, 12, styles.DeckColor(d.Label.String())),
		v.Gain*100)

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+title,
		"  "+artist,
		"",
		progressLine,
		"",
		styles.Muted.Render(gain),
		renderStatus(d),
		renderEffects(v.Effects),
	)
}

func renderStatus(d deck.Deck) string {
	var tags []string
	switch {
	case d.IsLoading:
		tags = append(tags, styles.Fading.Render("LOADING"))
	case d.IsActive:
		tags = append(tags, styles.Playing.Render("ON AIR"))
	}
	if d.IsPrepared {
		tags = append(tags, styles.Dim.Render("cue "+formatSeconds(float64(d.PreparedStartMs)/1000)))
	}
	if d.Track != nil && d.Track.Source == core.SourceSimulated {
		tags = append(tags, styles.Dim.Render("sim"))
	}
	return strings.Join(tags, "  ")
}

func renderEffects(active []effects.Descriptor) string {
	if len(active) == 0 {
		return ""
	}
	names := make([]string, len(active))
	for i, e := range active {
		names[i] = fmt.Sprintf("%s %.0f%%", e.Kind, e.Intensity*100)
	}
	return styles.Fading.Render("fx: " + strings.Join(names, ", "))
}

func formatSeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
