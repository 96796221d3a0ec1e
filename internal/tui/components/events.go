package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffdeck/internal/notify"
	"github.com/tessro/riffdeck/internal/tui/styles"
)

// maxEvents is how many transition events the log keeps.
const maxEvents = 50

// EventLog displays recent transition events
type EventLog struct {
	entries []notify.Event
	now     func() time.Time
}

// NewEventLog creates an empty EventLog
func NewEventLog() *EventLog {
	return &EventLog{now: time.Now}
}

// Add records e, newest first. Ticks are not kept.
func (l *EventLog) Add(e notify.Event) {
	if e.Kind == notify.KindTick {
		return
	}
	l.entries = append([]notify.Event{e}, l.entries...)
	if len(l.entries) > maxEvents {
		l.entries = l.entries[:maxEvents]
	}
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	return len(l.entries)
}

// Render renders the event panel
func (l *EventLog) Render(width, height int) string {
	title := styles.PanelTitle("Transitions", false)

	var content string
	if len(l.entries) == 0 {
		content = styles.Muted.Render("No transitions yet")
	} else {
		content = l.renderEntries(width-4, height-4)
	}

	panel := styles.Panel(false).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (l *EventLog) renderEntries(width, maxLines int) string {
	lines := make([]string, 0, maxLines)

	for i, e := range l.entries {
		if i >= maxLines {
			break
		}

		timeAgo := formatTimeAgo(l.now().Sub(e.Time))
		desc := describeEvent(e)

		padding := width - 2 - lipgloss.Width(desc) - len(timeAgo)
		if padding < 1 {
			padding = 1
		}

		line := fmt.Sprintf("%s %s%s%s",
			eventIcon(e.Kind),
			desc,
			lipgloss.NewStyle().Width(padding).Render(""),
			styles.Dim.Render(timeAgo))
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func describeEvent(e notify.Event) string {
	switch e.Kind {
	case notify.KindStart:
		s := "fade " + e.Direction.String()
		if e.TargetBPM > 0 {
			s += fmt.Sprintf(" (%d bpm)", e.TargetBPM)
		}
		return s
	case notify.KindEnd:
		if e.Handoff {
			return "deck " + e.Deck.String() + " on air"
		}
		return "fade " + e.Direction.String() + " done"
	case notify.KindCancel:
		if e.Reason != "" {
			return "cancelled: " + e.Reason
		}
		return "cancelled"
	default:
		return e.Kind.String()
	}
}

func eventIcon(k notify.Kind) string {
	switch k {
	case notify.KindStart:
		return styles.Fading.Render("⇄")
	case notify.KindEnd:
		return styles.Playing.Render("✓")
	case notify.KindCancel:
		return styles.ErrorText.Render("✗")
	default:
		return styles.Dim.Render("·")
	}
}

func formatTimeAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
