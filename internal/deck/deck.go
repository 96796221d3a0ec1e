// Package deck holds the two deck records and the activation protocol that
// decides which of them owns the remote player.
package deck

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/core"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/logging"
)

// Transport is the slice of the remote binding the decks drive.
type Transport interface {
	Play(ctx context.Context, uri string, positionMs int) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	Capabilities() core.Capabilities
}

// Deck is a copy of one deck's state.
type Deck struct {
	Label Label       `json:"label"`
	Track *core.Track `json:"track,omitempty"`

	IsPrepared      bool `json:"is_prepared"`
	PreparedStartMs int  `json:"prepared_start_ms"`

	IsPlaying bool `json:"is_playing"`
	IsActive  bool `json:"is_active"`
	IsLoading bool `json:"is_loading"`

	// CurrentTimeSec is authoritative only while the deck is active.
	CurrentTimeSec        float64 `json:"current_time_sec"`
	LastPlayedPositionSec float64 `json:"last_played_position_sec"`
	DurationSec           float64 `json:"duration_sec"`

	Volume float64 `json:"volume"`
}

// HasTrack returns true if a track is loaded.
func (d Deck) HasTrack() bool {
	return d.Track != nil
}

// RemainingSec returns how much of playable is left after CurrentTimeSec.
func (d Deck) RemainingSec(playableSec float64) float64 {
	return playableSec - d.CurrentTimeSec
}

// Decks guards both decks. Every activation goes through Activate, which is
// the only place IsActive changes.
type Decks struct {
	transport Transport
	logger    *zap.Logger

	mu    sync.Mutex
	decks [2]Deck
	epoch uint64

	obsMu     sync.RWMutex
	observers []func()
}

// New creates two empty decks at full volume.
func New(transport Transport, logger *zap.Logger) *Decks {
	d := &Decks{
		transport: transport,
		logger:    logging.OrNop(logger).Named("deck"),
	}
	d.resetLocked()
	return d
}

func (d *Decks) resetLocked() {
	for _, l := range Labels {
		d.decks[l] = Deck{Label: l, Volume: 1}
	}
}

// OnChange registers fn to run after activation or play state changes.
// fn is called without the deck lock held.
func (d *Decks) OnChange(fn func()) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

func (d *Decks) notify() {
	d.obsMu.RLock()
	observers := make([]func(), len(d.observers))
	copy(observers, d.observers)
	d.obsMu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

func deckErr(l Label, op string, err error) error {
	return &rerrors.DeckError{Deck: l.String(), Op: op, Err: err}
}

// Load puts track on deck l, clearing its preparation and positions.
func (d *Decks) Load(l Label, track *core.Track) error {
	if track == nil {
		return deckErr(l, "load", rerrors.ErrNoTrack)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	deck := &d.decks[l]
	if deck.IsActive {
		return deckErr(l, "load", rerrors.ErrDeckActive)
	}
	if deck.IsLoading {
		return deckErr(l, "load", rerrors.ErrActivationConflict)
	}

	deck.Track = track
	deck.IsPrepared = false
	deck.PreparedStartMs = 0
	deck.IsPlaying = false
	deck.CurrentTimeSec = 0
	deck.LastPlayedPositionSec = 0
	deck.DurationSec = track.DurationSec()

	d.logger.Info("track loaded",
		zap.Stringer("deck", l),
		zap.String("uri", track.URI),
		zap.String("title", track.Title))
	return nil
}

// Prepare sets the cue point and marks the deck ready for activation.
// An active deck keeps its live position.
func (d *Decks) Prepare(l Label, cueMs int) error {
	if cueMs < 0 {
		cueMs = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	deck := &d.decks[l]
	if deck.Track == nil {
		return deckErr(l, "prepare", rerrors.ErrNoTrack)
	}

	deck.IsPrepared = true
	deck.PreparedStartMs = cueMs
	if !deck.IsActive {
		deck.CurrentTimeSec = float64(cueMs) / 1000
	}
	return nil
}

// startPositionSec picks where an activation begins.
func startPositionSec(deck *Deck, preserve bool) float64 {
	switch {
	case preserve && deck.LastPlayedPositionSec > 0:
		return deck.LastPlayedPositionSec
	case preserve && deck.CurrentTimeSec > 0:
		return deck.CurrentTimeSec
	default:
		return float64(deck.PreparedStartMs) / 1000
	}
}

// Activate hands the remote player to deck l. With preservePosition it
// resumes from where the deck left off; otherwise it starts at the cue.
//
// The loading flag is set before the network call and checked on both
// decks, so a second activation fails with ErrActivationConflict while one
// is in flight. On failure nothing but the loading flag changes.
func (d *Decks) Activate(ctx context.Context, l Label, preservePosition bool) error {
	d.mu.Lock()
	deck := &d.decks[l]
	if deck.Track == nil || !deck.IsPrepared {
		d.mu.Unlock()
		d.logger.Warn("activation refused: deck not prepared", zap.Stringer("deck", l))
		return deckErr(l, "activate", rerrors.ErrNotPrepared)
	}
	for _, other := range d.decks {
		if other.IsLoading {
			d.mu.Unlock()
			return deckErr(l, "activate", rerrors.ErrActivationConflict)
		}
	}

	track := deck.Track
	startMs := int(math.Round(startPositionSec(deck, preservePosition) * 1000))
	deck.IsLoading = true
	d.mu.Unlock()

	uri, posMs := d.transport.Capabilities().Resolve(track, startMs)
	err := d.transport.Play(ctx, uri, posMs)

	// A Play the remote accepted is committed even if ctx was cancelled
	// meanwhile, so the decks keep matching what the remote is playing.
	d.mu.Lock()
	deck = &d.decks[l]
	deck.IsLoading = false
	if err == nil && deck.Track != track {
		err = fmt.Errorf("%w: deck reloaded during activation", rerrors.ErrActivationConflict)
	}
	if err != nil {
		d.mu.Unlock()
		d.logger.Warn("activation failed", zap.Stringer("deck", l), zap.Error(err))
		return deckErr(l, "activate", err)
	}

	other := &d.decks[l.Other()]
	if other.IsActive {
		other.LastPlayedPositionSec = other.CurrentTimeSec
	}
	other.IsActive = false
	other.IsPlaying = false

	deck.IsActive = true
	deck.IsPlaying = true
	deck.CurrentTimeSec = float64(posMs) / 1000
	deck.LastPlayedPositionSec = 0
	d.epoch++
	epoch := d.epoch
	d.mu.Unlock()

	d.logger.Info("deck activated",
		zap.Stringer("deck", l),
		zap.String("uri", uri),
		zap.Int("position_ms", posMs),
		zap.Uint64("epoch", epoch))
	d.notify()
	return nil
}

// PlayPause activates an inactive deck, resuming its position, or toggles
// pause on the active one.
func (d *Decks) PlayPause(ctx context.Context, l Label) error {
	d.mu.Lock()
	deck := d.decks[l]
	epoch := d.epoch
	d.mu.Unlock()

	if !deck.IsActive {
		return d.Activate(ctx, l, true)
	}

	var err error
	if deck.IsPlaying {
		err = d.transport.Pause(ctx)
	} else {
		err = d.transport.Resume(ctx)
	}
	if err != nil {
		return deckErr(l, "play/pause", err)
	}

	d.mu.Lock()
	if d.epoch == epoch && d.decks[l].IsActive {
		d.decks[l].IsPlaying = !deck.IsPlaying
	}
	d.mu.Unlock()

	d.notify()
	return nil
}

// Seek moves deck l to sec. On the active deck this seeks the remote
// player; on an inactive deck it only moves the preparation hint.
func (d *Decks) Seek(ctx context.Context, l Label, sec float64) error {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}

	d.mu.Lock()
	deck := &d.decks[l]
	if deck.Track == nil {
		d.mu.Unlock()
		return deckErr(l, "seek", rerrors.ErrNoTrack)
	}
	if !deck.IsActive {
		deck.CurrentTimeSec = sec
		deck.LastPlayedPositionSec = 0
		d.mu.Unlock()
		return nil
	}
	epoch := d.epoch
	d.mu.Unlock()

	if !d.transport.Capabilities().FullPlayback {
		return deckErr(l, "seek", rerrors.ErrPremiumRequired)
	}
	if err := d.transport.Seek(ctx, int(math.Round(sec*1000))); err != nil {
		return deckErr(l, "seek", err)
	}

	d.mu.Lock()
	if d.epoch == epoch && d.decks[l].IsActive {
		d.decks[l].CurrentTimeSec = sec
	}
	d.mu.Unlock()
	return nil
}

// ApplyPosition records an authoritative position sample for the active
// deck. Samples taken under an older epoch, for a deck that is no longer
// active, or while an activation is in flight are rejected.
func (d *Decks) ApplyPosition(epoch uint64, l Label, positionSec, durationSec float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if epoch != d.epoch || !d.decks[l].IsActive {
		return false
	}
	// The remote may already be playing the incoming deck.
	if d.decks[A].IsLoading || d.decks[B].IsLoading {
		return false
	}
	deck := &d.decks[l]
	deck.CurrentTimeSec = positionSec
	if durationSec > 0 {
		deck.DurationSec = durationSec
	}
	return true
}

// Active returns the active deck, if any.
func (d *Decks) Active() (Label, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, deck := range d.decks {
		if deck.IsActive {
			return deck.Label, true
		}
	}
	return A, false
}

// ActiveSnapshot returns the active deck together with the epoch it was
// activated under.
func (d *Decks) ActiveSnapshot() (Deck, uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, deck := range d.decks {
		if deck.IsActive {
			return deck, d.epoch, true
		}
	}
	return Deck{}, d.epoch, false
}

// Snapshot returns a copy of deck l.
func (d *Decks) Snapshot(l Label) Deck {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decks[l]
}

// Both returns copies of both decks, indexed by label.
func (d *Decks) Both() [2]Deck {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decks
}

// Epoch returns the activation counter.
func (d *Decks) Epoch() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.epoch
}

// SetVolume stores deck l's volume clamped to [0,1] and returns it.
func (d *Decks) SetVolume(l Label, v float64) float64 {
	v = core.Clamp01(v)
	d.mu.Lock()
	d.decks[l].Volume = v
	d.mu.Unlock()
	return v
}

// Reset empties both decks. Any in-flight activation is discarded when it
// completes.
func (d *Decks) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.epoch++
	d.mu.Unlock()
	d.notify()
}
