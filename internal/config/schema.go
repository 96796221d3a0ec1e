package config

// Config is the root configuration structure.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify" json:"spotify"`
	Mixer    MixerConfig    `toml:"mixer" json:"mixer"`
	AutoFade AutoFadeConfig `toml:"autofade" json:"autofade"`
	Notify   NotifyConfig   `toml:"notify" json:"notify"`
	TUI      TUIConfig      `toml:"tui" json:"tui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// SpotifyConfig holds Spotify API settings.
type SpotifyConfig struct {
	ClientID  string `toml:"client_id" json:"client_id"`
	Device    string `toml:"device" json:"device"`
	TokenFile string `toml:"token_file" json:"token_file"`
}

// MixerConfig holds loop cadences and the startup mix.
type MixerConfig struct {
	ReconcileIntervalMs int     `toml:"reconcile_interval_ms" json:"reconcile_interval_ms"`
	AnimationIntervalMs int     `toml:"animation_interval_ms" json:"animation_interval_ms"`
	Crossfader          float64 `toml:"crossfader" json:"crossfader"`
	VolumeA             float64 `toml:"volume_a" json:"volume_a"`
	VolumeB             float64 `toml:"volume_b" json:"volume_b"`
}

// AutoFadeConfig holds auto-crossfade settings. Durations are in seconds.
type AutoFadeConfig struct {
	Enabled          bool    `toml:"enabled" json:"enabled"`
	Duration         float64 `toml:"duration" json:"duration"`
	TriggerLead      float64 `toml:"trigger_lead" json:"trigger_lead"`
	Curve            string  `toml:"curve" json:"curve"`
	AutoActivateNext *bool   `toml:"auto_activate_next" json:"auto_activate_next"`
	SwitchTiming     float64 `toml:"switch_timing" json:"switch_timing"`
	TransitionEffect string  `toml:"transition_effect" json:"transition_effect"`
}

// ActivateNext reports the auto_activate_next setting, defaulting to true.
func (c *AutoFadeConfig) ActivateNext() bool {
	return c.AutoActivateNext == nil || *c.AutoActivateNext
}

// NotifyConfig holds the transition notification endpoint.
type NotifyConfig struct {
	Listen string `toml:"listen" json:"listen"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme" json:"theme"`
	RefreshInterval int    `toml:"refresh_interval" json:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}
