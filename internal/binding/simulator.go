package binding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tessro/riffdeck/internal/core"
)

// Simulator is an in-process core.RemotePlayer. Position advances with the
// injected clock while playing and stops at the end of the track.
type Simulator struct {
	mu    sync.Mutex
	clock func() time.Time
	caps  core.Capabilities

	durations map[string]time.Duration

	uri     string
	basePos time.Duration
	baseAt  time.Time
	paused  bool
	volume  int

	connectErr error
	playHook   func(ctx context.Context, uri string, positionMs int) error
	stateErr   error
	stateHook  func()
	calls      []string
}

// NewSimulator creates a simulator. A nil clock uses time.Now.
func NewSimulator(clock func() time.Time, caps core.Capabilities) *Simulator {
	if clock == nil {
		clock = time.Now
	}
	return &Simulator{
		clock:     clock,
		caps:      caps,
		durations: make(map[string]time.Duration),
		volume:    100,
	}
}

// AddTrack registers a URI so the simulator knows when it ends.
func (s *Simulator) AddTrack(uri string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[uri] = d
}

// FailConnect makes Connect return err.
func (s *Simulator) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectErr = err
}

// FailState makes GetState return err until cleared with nil.
func (s *Simulator) FailState(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateErr = err
}

// SetPlayHook runs fn before every PlayTrack; a non-nil error fails the call.
func (s *Simulator) SetPlayHook(fn func(ctx context.Context, uri string, positionMs int) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playHook = fn
}

// SetStateHook runs fn after GetState has sampled the player and before it
// returns, so tests can interleave commands with a query in flight.
func (s *Simulator) SetStateHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateHook = fn
}

// Calls returns the transport calls made so far.
func (s *Simulator) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CurrentVolume returns the last volume percent set.
func (s *Simulator) CurrentVolume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetPosition moves the playhead without recording a call.
func (s *Simulator) SetPosition(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basePos = d
	s.baseAt = s.clock()
}

func (s *Simulator) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// positionLocked returns the extrapolated position. Caller holds mu.
func (s *Simulator) positionLocked() time.Duration {
	pos := s.basePos
	if !s.paused && s.uri != "" {
		pos += s.clock().Sub(s.baseAt)
	}
	if d, ok := s.durations[s.uri]; ok && d > 0 && pos > d {
		pos = d
	}
	return pos
}

// Connect implements core.RemotePlayer.
func (s *Simulator) Connect(ctx context.Context) (core.Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("connect")
	if s.connectErr != nil {
		return core.Capabilities{}, s.connectErr
	}
	return s.caps, nil
}

// PlayTrack implements core.RemotePlayer.
func (s *Simulator) PlayTrack(ctx context.Context, uri string, positionMs int) error {
	s.mu.Lock()
	hook := s.playHook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, uri, positionMs); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("play %s %d", uri, positionMs)
	s.uri = uri
	s.basePos = time.Duration(positionMs) * time.Millisecond
	s.baseAt = s.clock()
	s.paused = false
	return nil
}

// Pause implements core.RemotePlayer.
func (s *Simulator) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("pause")
	if s.uri == "" {
		return errors.New("nothing playing")
	}
	s.basePos = s.positionLocked()
	s.baseAt = s.clock()
	s.paused = true
	return nil
}

// Resume implements core.RemotePlayer.
func (s *Simulator) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("resume")
	if s.uri == "" {
		return errors.New("nothing playing")
	}
	s.baseAt = s.clock()
	s.paused = false
	return nil
}

// Seek implements core.RemotePlayer.
func (s *Simulator) Seek(ctx context.Context, positionMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("seek %d", positionMs)
	s.basePos = time.Duration(positionMs) * time.Millisecond
	s.baseAt = s.clock()
	return nil
}

// Volume implements core.RemotePlayer.
func (s *Simulator) Volume(ctx context.Context, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("volume %d", percent)
	s.volume = percent
	return nil
}

// GetState implements core.RemotePlayer.
func (s *Simulator) GetState(ctx context.Context) (*core.PlaybackState, error) {
	state, err := s.sample()

	s.mu.Lock()
	hook := s.stateHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return state, err
}

func (s *Simulator) sample() (*core.PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stateErr != nil {
		return nil, s.stateErr
	}
	if s.uri == "" {
		return nil, nil
	}

	pos := s.positionLocked()
	d := s.durations[s.uri]
	paused := s.paused
	if d > 0 && pos >= d {
		paused = true
	}
	return &core.PlaybackState{
		TrackURI: s.uri,
		Paused:   paused,
		Position: pos,
		Duration: d,
		Volume:   s.volume,
		Device:   &core.Device{ID: "sim", Name: "Simulator", Type: core.DeviceTypeComputer, SupportsVolume: true},
	}, nil
}

var _ core.RemotePlayer = (*Simulator)(nil)
