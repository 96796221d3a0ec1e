// Package autofade watches the active deck's remaining time and runs timed,
// curve-shaped crossfades that hand the remote player to the other deck
// partway through.
package autofade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/core"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/effects"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/logging"
	"github.com/tessro/riffdeck/internal/notify"
)

// DefaultInterval is the animation period.
const DefaultInterval = 16 * time.Millisecond

// transitionEffectIntensity is how hard the outgoing deck's effect is driven.
const transitionEffectIntensity = 0.6

// Decks is the part of the deck store the scheduler reads and activates.
type Decks interface {
	Both() [2]deck.Deck
	Activate(ctx context.Context, l deck.Label, preservePosition bool) error
}

// Fader moves the crossfader.
type Fader interface {
	SetCrossfader(position float64) crossfade.Gains
}

// CapabilitySource reports what the bound account can play.
type CapabilitySource interface {
	Capabilities() core.Capabilities
}

// Options wires the scheduler to its collaborators. Effects, Notify, Tempo,
// Logger and Clock are optional.
type Options struct {
	Decks    Decks
	Fader    Fader
	Caps     CapabilitySource
	Effects  effects.Sink
	Notify   notify.Publisher
	Tempo    effects.TempoEstimator
	Logger   *zap.Logger
	Clock    func() time.Time
	Interval time.Duration
}

// State is a snapshot of the scheduler.
type State struct {
	IsCrossfading bool           `json:"is_crossfading"`
	ID            string         `json:"id,omitempty"`
	Direction     deck.Direction `json:"direction"`
	StartedAt     time.Time      `json:"started_at,omitempty"`
	Progress      float64        `json:"progress"`
	HandoffDone   bool           `json:"handoff_done"`
}

type transition struct {
	id        string
	start     time.Time
	direction deck.Direction
	cfg       Config
	bpm       int

	progress       float64
	handoffStarted bool
	handoffRunning bool
	handoffDone    bool

	ctx    context.Context
	cancel context.CancelFunc
}

func (t *transition) state() State {
	return State{
		IsCrossfading: true,
		ID:            t.id,
		Direction:     t.direction,
		StartedAt:     t.start,
		Progress:      t.progress,
		HandoffDone:   t.handoffDone,
	}
}

// Scheduler runs Idle -> Transitioning -> Idle. Arming is instantaneous:
// the check that detects the trigger window also starts the transition.
type Scheduler struct {
	decks    Decks
	fader    Fader
	caps     CapabilitySource
	effects  effects.Sink
	notify   notify.Publisher
	tempo    effects.TempoEstimator
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration

	mu  sync.Mutex
	cfg Config
	tr  *transition

	handoffs sync.WaitGroup
}

// New creates an idle scheduler.
func New(cfg Config, opts Options) *Scheduler {
	s := &Scheduler{
		decks:    opts.Decks,
		fader:    opts.Fader,
		caps:     opts.Caps,
		effects:  opts.Effects,
		notify:   opts.Notify,
		tempo:    opts.Tempo,
		logger:   logging.OrNop(opts.Logger).Named("autofade"),
		now:      opts.Clock,
		interval: opts.Interval,
		cfg:      cfg,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.tempo == nil {
		s.tempo = effects.KeywordEstimator{}
	}
	return s
}

// Config returns the current configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration. Disabling cancels a transition in
// flight so no late handoff fires.
func (s *Scheduler) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	inFlight := s.tr != nil
	s.mu.Unlock()

	if inFlight && !cfg.Enabled {
		s.Cancel("auto-crossfade disabled")
	}
	return nil
}

// State returns a snapshot of the current transition.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return State{}
	}
	return s.tr.state()
}

// InFlight reports whether a transition is running.
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr != nil
}

func (s *Scheduler) capabilities() core.Capabilities {
	if s.caps == nil {
		return core.FullCapabilities()
	}
	return s.caps.Capabilities()
}

// CheckTrigger starts a transition when the active deck is within the
// trigger lead of its end and the other deck is prepared. It is safe to
// call on every position sample.
func (s *Scheduler) CheckTrigger(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.tr != nil {
		return false
	}

	decks := s.decks.Both()
	var active *deck.Deck
	for i := range decks {
		if decks[i].IsActive {
			active = &decks[i]
			break
		}
	}
	if active == nil || active.Track == nil {
		return false
	}
	candidate := decks[active.Label.Other()]
	if candidate.Track == nil || !candidate.IsPrepared || candidate.IsLoading {
		return false
	}

	playable := s.capabilities().PlayableDuration(active.Track).Seconds()
	remaining := active.RemainingSec(playable)
	if remaining <= 0 || remaining > s.cfg.TriggerLead.Seconds() {
		return false
	}

	s.logger.Info("trigger window reached",
		zap.Stringer("deck", active.Label),
		zap.Float64("remaining_sec", remaining))
	s.startLocked(ctx, deck.Toward(candidate.Label), decks)
	return true
}

// Start begins a transition in direction d, e.g. from the manual fade
// button. It fails with ErrTransitionInProgress while one is running.
func (s *Scheduler) Start(ctx context.Context, d deck.Direction) error {
	if d != deck.AToB && d != deck.BToA {
		return fmt.Errorf("invalid crossfade direction %v", d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr != nil {
		s.logger.Info("crossfade request ignored",
			zap.Stringer("requested", d),
			zap.Stringer("running", s.tr.direction))
		return rerrors.ErrTransitionInProgress
	}
	s.startLocked(ctx, d, s.decks.Both())
	return nil
}

func (s *Scheduler) startLocked(ctx context.Context, d deck.Direction, decks [2]deck.Deck) {
	trCtx, cancel := context.WithCancel(ctx)
	tr := &transition{
		id:        uuid.NewString(),
		start:     s.now(),
		direction: d,
		cfg:       s.cfg,
		bpm:       s.tempo.EstimateBPM(decks[d.To()].Track),
		ctx:       trCtx,
		cancel:    cancel,
	}
	s.tr = tr

	if tr.cfg.Effect != nil && s.effects != nil {
		s.effects.ApplyEffect(d.From(), effects.NewDescriptor(*tr.cfg.Effect, transitionEffectIntensity))
	}

	s.logger.Info("crossfade started",
		zap.String("id", tr.id),
		zap.Stringer("direction", d),
		zap.Duration("duration", tr.cfg.Duration),
		zap.Stringer("curve", tr.cfg.Curve))
	s.publish(s.eventLocked(tr, notify.KindStart, ""))
}

// Step advances the running transition to now. The crossfader follows the
// curve; the handoff fires once when progress reaches the switch timing,
// and the transition finalizes at progress 1.
func (s *Scheduler) Step(now time.Time) State {
	s.mu.Lock()
	tr := s.tr
	if tr == nil {
		s.mu.Unlock()
		return State{}
	}

	progress := 1.0
	if tr.cfg.Duration > 0 {
		progress = core.Clamp01(float64(now.Sub(tr.start)) / float64(tr.cfg.Duration))
	}
	if progress < tr.progress {
		progress = tr.progress
	}
	tr.progress = progress

	fade := tr.cfg.Curve.Apply(progress)
	position := fade
	if tr.direction == deck.BToA {
		position = 1 - fade
	}

	handoff := false
	if !tr.handoffStarted && progress >= tr.cfg.SwitchTiming {
		tr.handoffStarted = true
		target := tr.direction.To()
		if tr.cfg.AutoActivateNext && !s.decks.Both()[target].IsActive {
			handoff = true
			tr.handoffRunning = true
			s.handoffs.Add(1)
		}
	}

	finished := progress >= 1
	kind := notify.KindTick
	if finished {
		s.tr = nil
		kind = notify.KindEnd
		// A running handoff releases the context itself.
		if !tr.handoffRunning {
			tr.cancel()
		}
	}
	state := tr.state()
	event := s.eventLocked(tr, kind, "")
	s.mu.Unlock()

	s.fader.SetCrossfader(position)

	if handoff {
		s.logger.Info("handing off",
			zap.String("id", tr.id),
			zap.Stringer("deck", tr.direction.To()),
			zap.Float64("progress", progress))
		go s.handoff(tr)
	}

	if finished {
		s.stopEffects()
		s.logger.Info("crossfade finished", zap.String("id", tr.id), zap.Stringer("direction", tr.direction))
		state.IsCrossfading = false
	}
	s.publish(event)
	return state
}

// handoff activates the incoming deck at its cue point. A failure is
// logged and leaves the fade running.
func (s *Scheduler) handoff(tr *transition) {
	defer s.handoffs.Done()
	defer tr.cancel()

	if tr.ctx.Err() != nil {
		return
	}
	target := tr.direction.To()
	if err := s.decks.Activate(tr.ctx, target, false); err != nil {
		s.logger.Warn("handoff failed, fade continues",
			zap.String("id", tr.id),
			zap.Stringer("deck", target),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	tr.handoffDone = true
	s.mu.Unlock()
}

// WaitHandoff blocks until every started handoff has returned.
func (s *Scheduler) WaitHandoff() {
	s.handoffs.Wait()
}

// Cancel stops the running transition and its pending handoff. It returns
// false when nothing was running.
func (s *Scheduler) Cancel(reason string) bool {
	s.mu.Lock()
	tr := s.tr
	if tr == nil {
		s.mu.Unlock()
		return false
	}
	s.tr = nil
	event := s.eventLocked(tr, notify.KindCancel, reason)
	s.mu.Unlock()

	tr.cancel()
	s.stopEffects()
	s.logger.Info("crossfade cancelled", zap.String("id", tr.id), zap.String("reason", reason))
	s.publish(event)
	return true
}

func (s *Scheduler) stopEffects() {
	if s.effects == nil {
		return
	}
	for _, l := range deck.Labels {
		s.effects.StopAll(l)
	}
}

// eventLocked describes tr. Caller holds mu.
func (s *Scheduler) eventLocked(tr *transition, kind notify.Kind, reason string) notify.Event {
	return notify.Event{
		TransitionID: tr.id,
		Kind:         kind,
		Deck:         tr.direction.To(),
		Direction:    tr.direction,
		Progress:     tr.progress,
		Handoff:      tr.handoffDone,
		TargetBPM:    tr.bpm,
		Reason:       reason,
		Time:         s.now(),
	}
}

func (s *Scheduler) publish(e notify.Event) {
	if s.notify != nil {
		s.notify.Publish(e)
	}
}

// Run animates transitions until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.InFlight() {
				s.Step(s.now())
			}
		}
	}
}
