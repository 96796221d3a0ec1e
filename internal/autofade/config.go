package autofade

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tessro/riffdeck/internal/config"
	"github.com/tessro/riffdeck/internal/crossfade"
	"github.com/tessro/riffdeck/internal/effects"
)

// Config controls when and how the scheduler crossfades.
type Config struct {
	Enabled          bool
	Duration         time.Duration
	TriggerLead      time.Duration
	Curve            crossfade.Curve
	AutoActivateNext bool

	// SwitchTiming is the fraction of Duration at which the incoming deck
	// takes over the remote player.
	SwitchTiming float64

	// Effect is applied to the outgoing deck for the length of the
	// transition. Nil means none.
	Effect *effects.Kind
}

// DefaultConfig returns the built-in settings, disabled.
func DefaultConfig() Config {
	return Config{
		Duration:         8 * time.Second,
		TriggerLead:      15 * time.Second,
		Curve:            crossfade.Smooth,
		AutoActivateNext: true,
		SwitchTiming:     0.75,
	}
}

// FromConfig converts the [autofade] file section.
func FromConfig(c config.AutoFadeConfig) (Config, error) {
	curve, err := crossfade.ParseCurve(c.Curve)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Enabled:          c.Enabled,
		Duration:         seconds(c.Duration),
		TriggerLead:      seconds(c.TriggerLead),
		Curve:            curve,
		AutoActivateNext: c.ActivateNext(),
		SwitchTiming:     c.SwitchTiming,
	}

	if name := strings.TrimSpace(c.TransitionEffect); name != "" && name != "none" {
		kind, err := effects.ParseKind(name)
		if err != nil {
			return Config{}, err
		}
		cfg.Effect = &kind
	}

	return cfg, cfg.Validate()
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", c.Duration))
	}
	if c.TriggerLead <= 0 {
		errs = append(errs, fmt.Errorf("trigger lead must be positive, got %v", c.TriggerLead))
	}
	if c.SwitchTiming <= 0 || c.SwitchTiming >= 1 {
		errs = append(errs, fmt.Errorf("switch timing must be between 0 and 1 exclusive, got %v", c.SwitchTiming))
	}
	switch c.Curve {
	case crossfade.Linear, crossfade.Smooth, crossfade.Power:
	default:
		errs = append(errs, fmt.Errorf("invalid curve %v", c.Curve))
	}
	return errors.Join(errs...)
}
