// Package mixer builds the console's components once and exposes the
// operator intents the UIs call.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/autofade"
	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/config"
	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/effects"
	"github.com/tessro/riffdeck/internal/logging"
	"github.com/tessro/riffdeck/internal/notify"
	"github.com/tessro/riffdeck/internal/reconcile"
)

// Options configures a Mixer. Remote is required; the rest is optional.
type Options struct {
	Remote  core.RemotePlayer
	Config  *config.Config
	Logger  *zap.Logger
	Effects effects.Sink
	Clock   func() time.Time
}

// Snapshot is everything a UI needs to draw the console.
type Snapshot struct {
	Decks        [2]deck.Deck            `json:"decks"`
	Crossfader   float64                 `json:"crossfader"`
	Gains        crossfade.Gains         `json:"gains"`
	Transition   autofade.State          `json:"transition"`
	AutoFade     bool                    `json:"autofade"`
	Curve        crossfade.Curve         `json:"curve"`
	Effects      [2][]effects.Descriptor `json:"effects"`
	Connected    bool                    `json:"connected"`
	Capabilities core.Capabilities       `json:"capabilities"`
	Stale        bool                    `json:"stale"`
	LastSync     time.Time               `json:"last_sync"`
}

// Mixer owns the binding, the decks, the crossfade engine, the reconciler
// and the auto-crossfade scheduler.
type Mixer struct {
	logger     *zap.Logger
	binding    *binding.Binding
	decks      *deck.Decks
	buses      *crossfade.MeterBuses
	engine     *crossfade.Engine
	effects    *effects.Recorder
	bus        *notify.Bus
	reconciler *reconcile.Reconciler
	scheduler  *autofade.Scheduler

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New wires a mixer from cfg. Nothing talks to the remote player until
// Start.
func New(opts Options) (*Mixer, error) {
	if opts.Remote == nil {
		return nil, errors.New("mixer: remote player is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	fade, err := autofade.FromConfig(cfg.AutoFade)
	if err != nil {
		return nil, fmt.Errorf("autofade config: %w", err)
	}

	logger := logging.OrNop(opts.Logger)
	sink := opts.Effects
	if sink == nil {
		sink = effects.NewLogSink(logger)
	}

	m := &Mixer{
		logger:  logger.Named("mixer"),
		buses:   crossfade.NewMeterBuses(),
		effects: effects.NewRecorder(sink),
		bus:     notify.NewBus(),
	}
	m.binding = binding.New(opts.Remote, logger)
	m.decks = deck.New(m.binding, logger)
	m.engine = crossfade.New(m.decks, m.binding, m.buses, logger)
	m.scheduler = autofade.New(fade, autofade.Options{
		Decks:    m.decks,
		Fader:    m.engine,
		Caps:     m.binding,
		Effects:  m.effects,
		Notify:   m.bus,
		Logger:   logger,
		Clock:    opts.Clock,
		Interval: time.Duration(cfg.Mixer.AnimationIntervalMs) * time.Millisecond,
	})
	m.reconciler = reconcile.New(m.binding, m.decks, m.scheduler,
		time.Duration(cfg.Mixer.ReconcileIntervalMs)*time.Millisecond, logger)

	m.decks.SetVolume(deck.A, cfg.Mixer.VolumeA)
	m.decks.SetVolume(deck.B, cfg.Mixer.VolumeB)
	m.decks.OnChange(func() { m.engine.Refresh() })
	m.engine.SetCrossfader(cfg.Mixer.Crossfader)

	return m, nil
}

// Start connects the remote player and launches the reconcile, animation
// and volume-push loops. They stop when ctx is done or Stop is called.
func (m *Mixer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("mixer already started")
	}

	if err := m.binding.Connect(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel

	loops := []struct {
		name string
		run  func(context.Context) error
	}{
		{"reconcile", m.reconciler.Run},
		{"animation", m.scheduler.Run},
		{"volume", m.engine.Run},
	}
	for _, l := range loops {
		m.running.Add(1)
		go func() {
			defer m.running.Done()
			if err := l.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("loop exited", zap.String("loop", l.name), zap.Error(err))
			}
		}()
	}

	caps := m.binding.Capabilities()
	m.logger.Info("mixer started",
		zap.Bool("full_playback", caps.FullPlayback),
		zap.Duration("reconcile_interval", m.reconciler.Interval()))
	return nil
}

// Stop cancels any transition, stops the loops and empties both decks.
func (m *Mixer) Stop() {
	m.scheduler.Cancel("mixer stopped")

	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.runCtx = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.running.Wait()
	}
	m.scheduler.WaitHandoff()
	for _, l := range deck.Labels {
		m.effects.StopAll(l)
	}
	m.decks.Reset()
	m.logger.Info("mixer stopped")
}

// loopContext returns the loop context, so work started by an intent outlives
// the caller's request.
func (m *Mixer) loopContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}

// Events subscribes to transition notifications.
func (m *Mixer) Events() (<-chan notify.Event, func()) {
	return m.bus.Subscribe()
}

// Bus returns the notification bus, e.g. for a WebSocket hub.
func (m *Mixer) Bus() *notify.Bus {
	return m.bus
}

// LoadTrack puts track on deck l.
func (m *Mixer) LoadTrack(l deck.Label, track *core.Track) error {
	return m.decks.Load(l, track)
}

// Prepare cues deck l at cueMs.
func (m *Mixer) Prepare(l deck.Label, cueMs int) error {
	return m.decks.Prepare(l, cueMs)
}

// PlayPause toggles deck l.
func (m *Mixer) PlayPause(ctx context.Context, l deck.Label) error {
	return m.decks.PlayPause(ctx, l)
}

// Activate hands the remote player to deck l.
func (m *Mixer) Activate(ctx context.Context, l deck.Label, preservePosition bool) error {
	return m.decks.Activate(ctx, l, preservePosition)
}

// Seek moves deck l to sec.
func (m *Mixer) Seek(ctx context.Context, l deck.Label, sec float64) error {
	return m.decks.Seek(ctx, l, sec)
}

// SetCrossfader moves the crossfader by hand.
func (m *Mixer) SetCrossfader(position float64) crossfade.Gains {
	return m.engine.SetCrossfader(position)
}

// NudgeCrossfader moves the crossfader by delta.
func (m *Mixer) NudgeCrossfader(delta float64) crossfade.Gains {
	return m.engine.SetCrossfader(m.engine.Position() + delta)
}

// SetVolume sets deck l's channel volume.
func (m *Mixer) SetVolume(l deck.Label, level float64) crossfade.Gains {
	return m.engine.SetVolume(l, level)
}

// NudgeVolume changes deck l's channel volume by delta.
func (m *Mixer) NudgeVolume(l deck.Label, delta float64) crossfade.Gains {
	return m.engine.SetVolume(l, m.decks.Snapshot(l).Volume+delta)
}

// AutoFade returns the scheduler configuration.
func (m *Mixer) AutoFade() autofade.Config {
	return m.scheduler.Config()
}

// SetAutoCrossfade replaces the scheduler configuration.
func (m *Mixer) SetAutoCrossfade(cfg autofade.Config) error {
	return m.scheduler.SetConfig(cfg)
}

// ReloadAutoFade applies a reloaded [autofade] section. An invalid
// section leaves the current configuration in place.
func (m *Mixer) ReloadAutoFade(c config.AutoFadeConfig) error {
	fade, err := autofade.FromConfig(c)
	if err != nil {
		return fmt.Errorf("autofade config: %w", err)
	}
	if err := m.scheduler.SetConfig(fade); err != nil {
		return err
	}
	m.logger.Info("auto-crossfade settings reloaded",
		zap.Bool("enabled", fade.Enabled),
		zap.Duration("duration", fade.Duration),
		zap.Stringer("curve", fade.Curve))
	return nil
}

// ToggleAutoCrossfade flips the enabled flag and returns the new value.
func (m *Mixer) ToggleAutoCrossfade() (bool, error) {
	cfg := m.scheduler.Config()
	cfg.Enabled = !cfg.Enabled
	if err := m.scheduler.SetConfig(cfg); err != nil {
		return !cfg.Enabled, err
	}
	return cfg.Enabled, nil
}

// StartCrossfade fades toward the deck that is not playing. With no active
// deck it fades away from the side the crossfader is on.
func (m *Mixer) StartCrossfade() (deck.Direction, error) {
	d := deck.AToB
	if active, ok := m.decks.Active(); ok {
		d = deck.Toward(active.Other())
	} else if m.engine.Position() >= 0.5 {
		d = deck.BToA
	}
	return d, m.scheduler.Start(m.loopContext(), d)
}

// CancelCrossfade stops a running transition.
func (m *Mixer) CancelCrossfade() bool {
	return m.scheduler.Cancel("cancelled by operator")
}

// ApplyEffect starts an effect on deck l and returns its descriptor.
func (m *Mixer) ApplyEffect(l deck.Label, kind effects.Kind, intensity float64) effects.Descriptor {
	d := effects.NewDescriptor(kind, intensity)
	m.effects.ApplyEffect(l, d)
	return d
}

// RemoveEffect stops one effect on deck l.
func (m *Mixer) RemoveEffect(l deck.Label, id string) {
	m.effects.RemoveEffect(l, id)
}

// Snapshot returns the current console state.
func (m *Mixer) Snapshot() Snapshot {
	fade := m.scheduler.Config()
	return Snapshot{
		Decks:        m.decks.Both(),
		Crossfader:   m.engine.Position(),
		Gains:        m.engine.Gains(),
		Transition:   m.scheduler.State(),
		AutoFade:     fade.Enabled,
		Curve:        fade.Curve,
		Effects:      [2][]effects.Descriptor{m.effects.Active(deck.A), m.effects.Active(deck.B)},
		Connected:    m.binding.Ready(),
		Capabilities: m.binding.Capabilities(),
		Stale:        m.reconciler.Stale(),
		LastSync:     m.reconciler.LastSync(),
	}
}
