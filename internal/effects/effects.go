// Package effects is the boundary to the audio effect graph. Commands are
// fire-and-forget; nothing here reports back to the mixer.
package effects

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/logging"
)

// Kind is a stylistic effect.
type Kind int

const (
	Filter Kind = iota
	Echo
	Reverb
	Flanger
	Brake
)

// Kinds lists every effect kind.
var Kinds = [...]Kind{Filter, Echo, Reverb, Flanger, Brake}

func (k Kind) String() string {
	switch k {
	case Filter:
		return "filter"
	case Echo:
		return "echo"
	case Reverb:
		return "reverb"
	case Flanger:
		return "flanger"
	case Brake:
		return "brake"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return Filter, fmt.Errorf("invalid effect %q", s)
}

// Descriptor names one applied effect.
type Descriptor struct {
	ID        string  `json:"id"`
	Kind      Kind    `json:"kind"`
	Intensity float64 `json:"intensity"`
}

// NewDescriptor returns a descriptor with a fresh ID.
func NewDescriptor(kind Kind, intensity float64) Descriptor {
	return Descriptor{
		ID:        uuid.NewString(),
		Kind:      kind,
		Intensity: intensity,
	}
}

// Sink consumes effect commands.
type Sink interface {
	ApplyEffect(l deck.Label, d Descriptor)
	RemoveEffect(l deck.Label, id string)
	StopAll(l deck.Label)
}

// LogSink logs every command. It is what the headless mode uses when no
// audio graph is attached.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logging.OrNop(logger).Named("effects")}
}

func (s *LogSink) ApplyEffect(l deck.Label, d Descriptor) {
	s.logger.Info("apply effect",
		zap.Stringer("deck", l),
		zap.String("id", d.ID),
		zap.Stringer("kind", d.Kind),
		zap.Float64("intensity", d.Intensity))
}

func (s *LogSink) RemoveEffect(l deck.Label, id string) {
	s.logger.Info("remove effect", zap.Stringer("deck", l), zap.String("id", id))
}

func (s *LogSink) StopAll(l deck.Label) {
	s.logger.Info("stop all effects", zap.Stringer("deck", l))
}

// Recorder keeps the effects currently applied to each deck and forwards
// every command to an optional next sink.
type Recorder struct {
	next Sink

	mu     sync.RWMutex
	active [2][]Descriptor
}

// NewRecorder creates a recorder. next may be nil.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) ApplyEffect(l deck.Label, d Descriptor) {
	r.mu.Lock()
	r.active[l] = append(r.active[l], d)
	r.mu.Unlock()
	if r.next != nil {
		r.next.ApplyEffect(l, d)
	}
}

func (r *Recorder) RemoveEffect(l deck.Label, id string) {
	r.mu.Lock()
	kept := r.active[l][:0]
	for _, d := range r.active[l] {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.active[l] = kept
	r.mu.Unlock()
	if r.next != nil {
		r.next.RemoveEffect(l, id)
	}
}

func (r *Recorder) StopAll(l deck.Label) {
	r.mu.Lock()
	r.active[l] = nil
	r.mu.Unlock()
	if r.next != nil {
		r.next.StopAll(l)
	}
}

// Active returns a copy of the effects applied to deck l.
func (r *Recorder) Active(l deck.Label) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.active[l]))
	copy(out, r.active[l])
	return out
}

var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*Recorder)(nil)
)

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
