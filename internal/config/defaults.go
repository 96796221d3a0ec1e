package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	activate := true
	return &Config{
		Mixer: MixerConfig{
			ReconcileIntervalMs: 250,
			AnimationIntervalMs: 16,
			Crossfader:          0,
			VolumeA:             1,
			VolumeB:             1,
		},
		AutoFade: AutoFadeConfig{
			Enabled:          false,
			Duration:         8,
			TriggerLead:      15,
			Curve:            "smooth",
			AutoActivateNext: &activate,
			SwitchTiming:     0.75,
			TransitionEffect: "none",
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 100,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
// Volumes and crossfader position default only when the whole mixer
// section is empty, since zero is a legitimate setting for them.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Mixer
	if c.Mixer == (MixerConfig{}) {
		c.Mixer = d.Mixer
	}
	if c.Mixer.ReconcileIntervalMs == 0 {
		c.Mixer.ReconcileIntervalMs = d.Mixer.ReconcileIntervalMs
	}
	if c.Mixer.AnimationIntervalMs == 0 {
		c.Mixer.AnimationIntervalMs = d.Mixer.AnimationIntervalMs
	}

	// AutoFade
	if c.AutoFade.Duration == 0 {
		c.AutoFade.Duration = d.AutoFade.Duration
	}
	if c.AutoFade.TriggerLead == 0 {
		c.AutoFade.TriggerLead = d.AutoFade.TriggerLead
	}
	if c.AutoFade.Curve == "" {
		c.AutoFade.Curve = d.AutoFade.Curve
	}
	if c.AutoFade.AutoActivateNext == nil {
		c.AutoFade.AutoActivateNext = d.AutoFade.AutoActivateNext
	}
	if c.AutoFade.SwitchTiming == 0 {
		c.AutoFade.SwitchTiming = d.AutoFade.SwitchTiming
	}
	if c.AutoFade.TransitionEffect == "" {
		c.AutoFade.TransitionEffect = d.AutoFade.TransitionEffect
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = d.Log.MaxAgeDays
	}
}
