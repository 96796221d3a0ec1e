// Package binding owns the mixer's single connection to a remote player.
package binding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/core"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/logging"
)

const (
	subscriberBuffer = 16

	// positionJump is how far a reported position may drift from the
	// extrapolated one before it counts as a state change.
	positionJump = 2 * time.Second
)

// Binding wraps exactly one remote player. Transport calls fail with
// ErrBindingUnavailable until Connect succeeds.
type Binding struct {
	remote core.RemotePlayer
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	ready  bool
	caps   core.Capabilities
	last   *core.PlaybackState
	lastAt time.Time
	seq    uint64

	subMu sync.RWMutex
	subs  map[chan Update]struct{}
}

// Update is a published state change. Seq is the play sequence at the time
// the state was requested. Polled is set for states that came back from a
// GetState query rather than from a command.
type Update struct {
	State  core.PlaybackState
	Seq    uint64
	Polled bool
}

// New creates a binding around remote.
func New(remote core.RemotePlayer, logger *zap.Logger) *Binding {
	return &Binding{
		remote: remote,
		logger: logging.OrNop(logger).Named("binding"),
		now:    time.Now,
		subs:   make(map[chan Update]struct{}),
	}
}

// Connect readies the remote session and records its capabilities.
func (b *Binding) Connect(ctx context.Context) error {
	caps, err := b.remote.Connect(ctx)
	if err != nil {
		b.mu.Lock()
		b.ready = false
		b.mu.Unlock()
		return fmt.Errorf("%w: %v", rerrors.ErrBindingUnavailable, err)
	}

	b.mu.Lock()
	b.ready = true
	b.caps = caps
	b.mu.Unlock()

	b.logger.Info("remote player connected",
		zap.Bool("full_playback", caps.FullPlayback),
		zap.Duration("preview_length", caps.PreviewLength))
	return nil
}

// Ready returns true once Connect has succeeded.
func (b *Binding) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// Capabilities returns what the connected account may play.
func (b *Binding) Capabilities() core.Capabilities {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps
}

func (b *Binding) checkReady() error {
	if !b.Ready() {
		return rerrors.ErrBindingUnavailable
	}
	return nil
}

// Seq returns how many Play commands the remote player has accepted.
func (b *Binding) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Play starts uri at positionMs on the remote player.
func (b *Binding) Play(ctx context.Context, uri string, positionMs int) error {
	if err := b.checkReady(); err != nil {
		return err
	}
	if err := b.remote.PlayTrack(ctx, uri, positionMs); err != nil {
		return fmt.Errorf("play %s: %w", uri, err)
	}
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	b.logger.Debug("play", zap.String("uri", uri), zap.Int("position_ms", positionMs))
	b.observeCommand(seq, func(s *core.PlaybackState) {
		s.TrackURI = uri
		s.Track = nil
		s.Duration = 0
		s.Position = time.Duration(positionMs) * time.Millisecond
		s.Paused = false
	})
	return nil
}

// Pause pauses the remote player.
func (b *Binding) Pause(ctx context.Context) error {
	if err := b.checkReady(); err != nil {
		return err
	}
	seq := b.Seq()
	if err := b.remote.Pause(ctx); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	b.observeCommand(seq, func(s *core.PlaybackState) { s.Paused = true })
	return nil
}

// Resume resumes the remote player.
func (b *Binding) Resume(ctx context.Context) error {
	if err := b.checkReady(); err != nil {
		return err
	}
	seq := b.Seq()
	if err := b.remote.Resume(ctx); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	b.observeCommand(seq, func(s *core.PlaybackState) { s.Paused = false })
	return nil
}

// Seek moves the remote playhead.
func (b *Binding) Seek(ctx context.Context, positionMs int) error {
	if err := b.checkReady(); err != nil {
		return err
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if err := b.remote.Seek(ctx, positionMs); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// SetVolume sets the remote volume from a level in [0,1].
func (b *Binding) SetVolume(ctx context.Context, level float64) error {
	if err := b.checkReady(); err != nil {
		return err
	}
	percent := LevelToPercent(level)
	if err := b.remote.Volume(ctx, percent); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

// GetState queries the remote player. A nil state means nothing is loaded.
func (b *Binding) GetState(ctx context.Context) (*core.PlaybackState, error) {
	if err := b.checkReady(); err != nil {
		return nil, err
	}
	seq := b.Seq()
	state, err := b.remote.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil {
		b.observe(state, seq, true)
	}
	return state, nil
}

// Subscribe returns the asynchronous state-change stream. Slow subscribers
// miss events rather than stall the binding.
func (b *Binding) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	b.subMu.Lock()
	b.subs[ch] = struct{}{}
	b.subMu.Unlock()

	cancel := func() {
		b.subMu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.subMu.Unlock()
	}
	return ch, cancel
}

// observe records state and notifies subscribers when it differs from the
// previous observation. seq is the play sequence when state was requested.
func (b *Binding) observe(state *core.PlaybackState, seq uint64, polled bool) {
	now := b.now()

	b.mu.Lock()
	prev, prevAt := b.last, b.lastAt
	snapshot := *state
	b.last = &snapshot
	b.lastAt = now
	b.mu.Unlock()

	if !changed(prev, &snapshot, now.Sub(prevAt)) {
		return
	}
	b.publish(Update{State: snapshot, Seq: seq, Polled: polled})
}

// observeCommand derives the post-command state from the last observation.
func (b *Binding) observeCommand(seq uint64, apply func(*core.PlaybackState)) {
	b.mu.RLock()
	var next core.PlaybackState
	if b.last != nil {
		next = *b.last
	}
	b.mu.RUnlock()

	apply(&next)
	b.observe(&next, seq, false)
}

func (b *Binding) publish(u Update) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// changed compares two observations taken elapsed apart.
func changed(prev, curr *core.PlaybackState, elapsed time.Duration) bool {
	if prev == nil {
		return curr.HasTrack()
	}
	if prev.TrackURI != curr.TrackURI || prev.Paused != curr.Paused || prev.Volume != curr.Volume {
		return true
	}
	if deviceID(prev) != deviceID(curr) {
		return true
	}

	expected := prev.Position
	if !prev.Paused {
		expected += elapsed
	}
	drift := curr.Position - expected
	if drift < 0 {
		drift = -drift
	}
	return drift > positionJump
}

func deviceID(s *core.PlaybackState) string {
	if s.Device == nil {
		return ""
	}
	return s.Device.ID
}

// LevelToPercent converts a [0,1] level to a 0-100 volume percent.
func LevelToPercent(level float64) int {
	if level < 0 || math.IsNaN(level) {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return int(math.Round(level * 100))
}
