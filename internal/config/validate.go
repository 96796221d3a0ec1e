package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Mixer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mixer: %w", err))
	}
	if err := c.AutoFade.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("autofade: %w", err))
	}
	if err := c.Notify.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks MixerConfig for errors.
func (c *MixerConfig) Validate() error {
	if c.ReconcileIntervalMs < 0 {
		return errors.New("reconcile_interval_ms must be non-negative")
	}
	if c.AnimationIntervalMs < 0 || c.AnimationIntervalMs > 33 {
		return errors.New("animation_interval_ms must be between 0 and 33")
	}
	for name, v := range map[string]float64{
		"crossfader": c.Crossfader,
		"volume_a":   c.VolumeA,
		"volume_b":   c.VolumeB,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// Validate checks AutoFadeConfig for errors.
func (c *AutoFadeConfig) Validate() error {
	if c.Duration < 0 {
		return errors.New("duration must be non-negative")
	}
	if c.TriggerLead < 0 {
		return errors.New("trigger_lead must be non-negative")
	}
	switch c.Curve {
	case "", "linear", "smooth", "power":
		// valid
	default:
		return fmt.Errorf("invalid curve: %s (must be linear, smooth, or power)", c.Curve)
	}
	if c.SwitchTiming != 0 && (c.SwitchTiming <= 0 || c.SwitchTiming >= 1) {
		return errors.New("switch_timing must be strictly between 0 and 1")
	}
	switch c.TransitionEffect {
	case "", "none", "filter", "echo", "reverb", "flanger", "brake":
		// valid
	default:
		return fmt.Errorf("invalid transition_effect: %s", c.TransitionEffect)
	}
	return nil
}

// Validate checks NotifyConfig for errors.
func (c *NotifyConfig) Validate() error {
	if c.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, or light)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return errors.New("rotation settings must be non-negative")
	}
	return nil
}
