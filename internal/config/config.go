package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.riffdeckrc, $XDG_CONFIG_HOME/riffdeck/config.toml, ~/.config/riffdeck/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultPath returns where 'config init' writes a new file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".riffdeckrc"
	}
	return filepath.Join(home, ".riffdeckrc")
}

// Path returns the config file Load would read, or "" when none exists.
func Path() string {
	return findConfigFile()
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".riffdeckrc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "riffdeck", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
// A .env file in the working directory is read first; real environment
// variables win over it.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	// Spotify
	if v := os.Getenv("RIFFDECK_SPOTIFY_CLIENT_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := os.Getenv("RIFFDECK_SPOTIFY_DEVICE"); v != "" {
		cfg.Spotify.Device = v
	}
	if v := os.Getenv("RIFFDECK_SPOTIFY_TOKEN_FILE"); v != "" {
		cfg.Spotify.TokenFile = v
	}

	// Mixer
	if v := os.Getenv("RIFFDECK_MIXER_RECONCILE_INTERVAL_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Mixer.ReconcileIntervalMs = i
		}
	}

	// AutoFade
	if v := os.Getenv("RIFFDECK_AUTOFADE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoFade.Enabled = b
		}
	}
	if v := os.Getenv("RIFFDECK_AUTOFADE_CURVE"); v != "" {
		cfg.AutoFade.Curve = v
	}

	// Notify
	if v := os.Getenv("RIFFDECK_NOTIFY_LISTEN"); v != "" {
		cfg.Notify.Listen = v
	}

	// Log
	if v := os.Getenv("RIFFDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RIFFDECK_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
