package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[autofade]
enabled = true
trigger_lead = 5.0
curve = "power"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if !cfg.AutoFade.Enabled {
		t.Error("AutoFade.Enabled = false, want true")
	}
	if cfg.AutoFade.TriggerLead != 5 {
		t.Errorf("AutoFade.TriggerLead = %v, want 5", cfg.AutoFade.TriggerLead)
	}
	if cfg.AutoFade.Curve != "power" {
		t.Errorf("AutoFade.Curve = %q, want power", cfg.AutoFade.Curve)
	}
	if cfg.AutoFade.Duration != 8 {
		t.Errorf("AutoFade.Duration = %v, want default 8", cfg.AutoFade.Duration)
	}
	if cfg.AutoFade.SwitchTiming != 0.75 {
		t.Errorf("AutoFade.SwitchTiming = %v, want default 0.75", cfg.AutoFade.SwitchTiming)
	}
	if !cfg.AutoFade.ActivateNext() {
		t.Error("ActivateNext() = false, want default true")
	}
	if cfg.Mixer.ReconcileIntervalMs != 250 {
		t.Errorf("Mixer.ReconcileIntervalMs = %d, want 250", cfg.Mixer.ReconcileIntervalMs)
	}
	if cfg.Mixer.VolumeA != 1 || cfg.Mixer.VolumeB != 1 {
		t.Errorf("Mixer volumes = %v/%v, want 1/1", cfg.Mixer.VolumeA, cfg.Mixer.VolumeB)
	}
}

func TestLoadFromKeepsExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[autofade]
auto_activate_next = false

[mixer]
volume_a = 0.0
volume_b = 0.5
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.AutoFade.ActivateNext() {
		t.Error("ActivateNext() = true, want explicit false kept")
	}
	if cfg.Mixer.VolumeA != 0 {
		t.Errorf("Mixer.VolumeA = %v, want explicit 0 kept", cfg.Mixer.VolumeA)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RIFFDECK_AUTOFADE_ENABLED", "true")
	t.Setenv("RIFFDECK_LOG_LEVEL", "debug")
	t.Setenv("RIFFDECK_NOTIFY_LISTEN", "127.0.0.1:9300")

	cfg := Default()
	applyEnvOverrides(cfg)

	if !cfg.AutoFade.Enabled {
		t.Error("AutoFade.Enabled = false, want true from env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Notify.Listen != "127.0.0.1:9300" {
		t.Errorf("Notify.Listen = %q, want 127.0.0.1:9300", cfg.Notify.Listen)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad curve", func(c *Config) { c.AutoFade.Curve = "exp" }, "invalid curve"},
		{"switch timing 1", func(c *Config) { c.AutoFade.SwitchTiming = 1 }, "switch_timing"},
		{"slow animation", func(c *Config) { c.Mixer.AnimationIntervalMs = 50 }, "animation_interval_ms"},
		{"volume above 1", func(c *Config) { c.Mixer.VolumeB = 1.5 }, "volume_b"},
		{"bad effect", func(c *Config) { c.AutoFade.TransitionEffect = "wobble" }, "transition_effect"},
		{"bad listen", func(c *Config) { c.Notify.Listen = "nope" }, "listen"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
