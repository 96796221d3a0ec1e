// Package reconcile feeds the remote player's authoritative position back
// into the active deck.
package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/logging"
)

// DefaultInterval is the polling period.
const DefaultInterval = 250 * time.Millisecond

// staleAfter is how many missed periods make the position stale.
const staleAfter = 4

// Remote is the part of the binding the reconciler polls.
type Remote interface {
	GetState(ctx context.Context) (*core.PlaybackState, error)
	Subscribe() (<-chan binding.Update, func())
	Seq() uint64
	Capabilities() core.Capabilities
}

// Decks is the part of the deck store the reconciler updates.
type Decks interface {
	ActiveSnapshot() (deck.Deck, uint64, bool)
	ApplyPosition(epoch uint64, l deck.Label, positionSec, durationSec float64) bool
}

// TriggerChecker runs after every applied sample.
type TriggerChecker interface {
	CheckTrigger(ctx context.Context) bool
}

// Reconciler polls the remote player and applies its position to the
// active deck.
type Reconciler struct {
	remote   Remote
	decks    Decks
	trigger  TriggerChecker
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	// tickMu keeps ticks strictly sequential.
	tickMu sync.Mutex

	mu         sync.RWMutex
	lastSync   time.Time
	seenEpoch  uint64
	seenActive time.Time
}

// New creates a reconciler. trigger may be nil.
func New(remote Remote, decks Decks, trigger TriggerChecker, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		remote:   remote,
		decks:    decks,
		trigger:  trigger,
		interval: interval,
		logger:   logging.OrNop(logger).Named("reconcile"),
		now:      time.Now,
	}
}

// Interval returns the polling period.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run polls until ctx is done. Binding notifications are applied as they
// arrive, between ticks.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	updates, cancel := r.remote.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			r.Observe(ctx, u)
		}
	}
}

// Tick queries the remote player once and applies the result.
func (r *Reconciler) Tick(ctx context.Context) bool {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	active, epoch, ok := r.decks.ActiveSnapshot()
	if !ok {
		return false
	}
	r.markActive(epoch)

	state, err := r.remote.GetState(ctx)
	if err != nil {
		r.logger.Debug("position query failed", zap.Error(err))
		return false
	}
	return r.apply(ctx, active, epoch, state)
}

// Observe applies a state pushed by the binding outside the poll cadence.
// Polled states were already applied by the Tick that asked for them, and
// states requested before the latest Play describe an older activation.
func (r *Reconciler) Observe(ctx context.Context, u binding.Update) bool {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	if u.Polled {
		return false
	}
	if seq := r.remote.Seq(); u.Seq != seq {
		r.logger.Debug("discarding notification from before the last play",
			zap.Uint64("seq", u.Seq),
			zap.Uint64("current", seq))
		return false
	}
	state := u.State

	active, epoch, ok := r.decks.ActiveSnapshot()
	if !ok {
		return false
	}
	return r.apply(ctx, active, epoch, &state)
}

// apply maps state onto the deck that was active when the query began.
// Caller holds tickMu.
func (r *Reconciler) apply(ctx context.Context, active deck.Deck, epoch uint64, state *core.PlaybackState) bool {
	// A paused or empty player must not clobber a paused deck's position.
	if state == nil || state.Paused || !state.HasTrack() {
		return false
	}

	// Right after a handoff the remote may still report the old track.
	uri, _ := r.remote.Capabilities().Resolve(active.Track, 0)
	if uri == "" || state.TrackURI != uri {
		r.logger.Debug("discarding sample for another track",
			zap.String("reported", state.TrackURI),
			zap.String("expected", uri))
		return false
	}

	if !r.decks.ApplyPosition(epoch, active.Label, state.Position.Seconds(), state.Duration.Seconds()) {
		r.logger.Debug("discarding stale sample", zap.Uint64("epoch", epoch))
		return false
	}

	r.mu.Lock()
	r.lastSync = r.now()
	r.mu.Unlock()

	if r.trigger != nil {
		r.trigger.CheckTrigger(ctx)
	}
	return true
}

// markActive remembers when the current activation was first seen, so
// staleness is measured from then until the first sample lands.
func (r *Reconciler) markActive(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seenActive.IsZero() || r.seenEpoch != epoch {
		r.seenEpoch = epoch
		r.seenActive = r.now()
	}
}

// LastSync returns when a sample was last applied.
func (r *Reconciler) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

// Stale reports whether an active, playing deck has gone several periods
// without a fresh sample.
func (r *Reconciler) Stale() bool {
	active, _, ok := r.decks.ActiveSnapshot()
	if !ok || !active.IsPlaying {
		return false
	}
	r.mu.RLock()
	ref := r.lastSync
	if r.seenActive.After(ref) {
		ref = r.seenActive
	}
	r.mu.RUnlock()

	if ref.IsZero() {
		return false
	}
	return r.now().Sub(ref) > staleAfter*r.interval
}
