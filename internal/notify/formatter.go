package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Formatter formats events for the headless output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	showTicks     bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTicks includes animation tick events, which are dropped by default.
func WithTicks(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTicks = enabled
	}
}

// WithTemplate sets a custom format template.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl != "" {
			t, err := template.New("format").Parse(tmpl)
			if err == nil {
				f.template = t
			}
		}
	}
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showEmoji:     true,
		showTimestamp: false,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string. It returns "" for events the
// formatter is configured to skip.
func (f *Formatter) Format(e Event) string {
	if e.Kind == KindTick && !f.showTicks {
		return ""
	}
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Time.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Kind))
	}
	parts = append(parts, describe(e))

	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Kind:      e.Kind.String(),
		Emoji:     eventEmoji(e.Kind),
		Timestamp: e.Time,
		Time:      e.Time.Format("15:04:05"),
		ID:        e.TransitionID,
		Deck:      e.Deck.String(),
		Direction: e.Direction.String(),
		Progress:  int(e.Progress * 100),
		Handoff:   e.Handoff,
		BPM:       e.TargetBPM,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Kind      string
	Emoji     string
	Timestamp time.Time
	Time      string
	ID        string
	Deck      string
	Direction string
	Progress  int
	Handoff   bool
	BPM       int
}

func describe(e Event) string {
	switch e.Kind {
	case KindStart:
		if e.TargetBPM > 0 {
			return fmt.Sprintf("Crossfade %s started (deck %s, %d bpm)", e.Direction, e.Deck, e.TargetBPM)
		}
		return fmt.Sprintf("Crossfade %s started (deck %s)", e.Direction, e.Deck)
	case KindTick:
		s := fmt.Sprintf("Crossfade %s %3.0f%%", e.Direction, e.Progress*100)
		if e.Handoff {
			s += " [handed off]"
		}
		return s
	case KindEnd:
		if !e.Handoff {
			return fmt.Sprintf("Crossfade %s finished without handoff", e.Direction)
		}
		return fmt.Sprintf("Crossfade %s finished, deck %s live", e.Direction, e.Deck)
	case KindCancel:
		if e.Reason != "" {
			return fmt.Sprintf("Crossfade %s cancelled: %s", e.Direction, e.Reason)
		}
		return fmt.Sprintf("Crossfade %s cancelled", e.Direction)
	default:
		return "Unknown event"
	}
}

func eventEmoji(k Kind) string {
	switch k {
	case KindStart:
		return "🎚️"
	case KindTick:
		return "〰️"
	case KindEnd:
		return "✅"
	case KindCancel:
		return "⏹️"
	default:
		return "❓"
	}
}
