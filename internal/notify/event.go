// Package notify publishes transition events to the beat cue, the console
// and WebSocket listeners.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/tessro/riffdeck/internal/deck"
)

// Kind is the phase of a transition an event reports.
type Kind int

const (
	KindStart Kind = iota
	KindTick
	KindEnd
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindTick:
		return "tick"
	case KindEnd:
		return "end"
	case KindCancel:
		return "cancel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event describes one moment of a transition.
type Event struct {
	TransitionID string         `json:"transition_id"`
	Kind         Kind           `json:"kind"`
	Deck         deck.Label     `json:"deck"`
	Direction    deck.Direction `json:"direction"`
	Progress     float64        `json:"progress"`
	Handoff      bool           `json:"handoff"`
	TargetBPM    int            `json:"target_bpm,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Time         time.Time      `json:"time"`
}

// Publisher accepts events.
type Publisher interface {
	Publish(e Event)
}

const subscriberBuffer = 64

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// that falls behind loses events.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish implements Publisher.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns an event channel and a cancel func that closes it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

var _ Publisher = (*Bus)(nil)
