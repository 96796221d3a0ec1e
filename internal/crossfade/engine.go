// Package crossfade turns the crossfader position and deck volumes into
// gains for the local buses and the remote player.
package crossfade

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/logging"
)

// DeckState is the part of the decks the engine reads and writes.
type DeckState interface {
	Both() [2]deck.Deck
	SetVolume(l deck.Label, v float64) float64
}

// RemoteVolume receives the active deck's gain.
type RemoteVolume interface {
	SetVolume(ctx context.Context, level float64) error
}

// Buses are the local mix buses.
type Buses interface {
	SetGain(l deck.Label, gain float64)
}

// Gains are the effective per-deck gains.
type Gains struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// For returns the gain of deck l.
func (g Gains) For(l deck.Label) float64 {
	if l == deck.B {
		return g.B
	}
	return g.A
}

// Compute applies the crossfader formula.
func Compute(position, volA, volB float64) Gains {
	position = core.Clamp01(position)
	return Gains{
		A: core.Clamp01(volA) * (1 - position),
		B: core.Clamp01(volB) * position,
	}
}

const noVolume = -1

// Engine owns the crossfader position.
//
// Local buses are updated synchronously. The remote player only ever hears
// the gain of the deck that is both active and playing, and those pushes
// are coalesced: Run delivers the latest percent and skips repeats.
type Engine struct {
	decks  DeckState
	remote RemoteVolume
	buses  Buses
	logger *zap.Logger

	mu       sync.Mutex
	position float64
	gains    Gains

	pushMu   sync.Mutex
	pending  int
	lastSent int
	kick     chan struct{}
}

// New creates an engine with the crossfader at 0 (deck A).
func New(decks DeckState, remote RemoteVolume, buses Buses, logger *zap.Logger) *Engine {
	return &Engine{
		decks:    decks,
		remote:   remote,
		buses:    buses,
		logger:   logging.OrNop(logger).Named("crossfade"),
		pending:  noVolume,
		lastSent: noVolume,
		kick:     make(chan struct{}, 1),
	}
}

// Position returns the crossfader position.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Gains returns the last computed gains.
func (e *Engine) Gains() Gains {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gains
}

// SetCrossfader moves the crossfader, clamped to [0,1].
func (e *Engine) SetCrossfader(position float64) Gains {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = core.Clamp01(position)
	return e.applyLocked()
}

// SetVolume stores deck l's volume and reapplies the mix.
func (e *Engine) SetVolume(l deck.Label, level float64) Gains {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decks.SetVolume(l, level)
	return e.applyLocked()
}

// Refresh reapplies the mix, e.g. after the active deck changed.
func (e *Engine) Refresh() Gains {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked()
}

func (e *Engine) applyLocked() Gains {
	decks := e.decks.Both()
	g := Compute(e.position, decks[deck.A].Volume, decks[deck.B].Volume)
	e.gains = g

	if e.buses != nil {
		for _, l := range deck.Labels {
			e.buses.SetGain(l, g.For(l))
		}
	}

	for _, d := range decks {
		if d.IsActive && d.IsPlaying {
			e.queueRemote(binding.LevelToPercent(g.For(d.Label)))
			break
		}
	}
	return g
}

func (e *Engine) queueRemote(percent int) {
	e.pushMu.Lock()
	e.pending = percent
	e.pushMu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run delivers queued remote volume changes until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.kick:
			e.flushRemote(ctx)
		}
	}
}

// flushRemote sends the pending volume if it differs from the last one sent.
func (e *Engine) flushRemote(ctx context.Context) {
	e.pushMu.Lock()
	percent := e.pending
	e.pending = noVolume
	skip := percent == noVolume || percent == e.lastSent
	e.pushMu.Unlock()

	if skip || e.remote == nil {
		return
	}

	if err := e.remote.SetVolume(ctx, float64(percent)/100); err != nil {
		e.logger.Debug("remote volume push failed", zap.Int("percent", percent), zap.Error(err))
		return
	}

	e.pushMu.Lock()
	e.lastSent = percent
	e.pushMu.Unlock()
}
