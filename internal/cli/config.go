package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/riffdeck/internal/config"
)

const configHeader = "# Riffdeck Configuration\n# https://github.com/tessro/riffdeck\n\n"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing riffdeck configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(getConfigPath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Supported keys:
  spotify.client_id            Spotify client ID
  spotify.device               Playback device name or ID
  spotify.token_file           Path of the stored Spotify token
  mixer.crossfader             Startup crossfader position (0-1)
  mixer.volume_a               Startup volume of deck A (0-1)
  mixer.volume_b               Startup volume of deck B (0-1)
  mixer.reconcile_interval_ms  Remote polling period
  autofade.enabled             Auto-crossfade on start (true/false)
  autofade.duration            Transition length in seconds
  autofade.trigger_lead        Seconds before the end to start fading
  autofade.curve               linear, smooth or power
  autofade.switch_timing       Fraction of the fade at which decks swap
  notify.listen                Address for the transition event stream
  log.level                    debug, info, warn or error
  log.file                     Log file path

Examples:
  riffdeck config set spotify.device "Kitchen"
  riffdeck config set autofade.duration 10`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetDeviceCmd = &cobra.Command{
	Use:   "set-device",
	Short: "Interactively select the playback device",
	Long:  `Shows a picker to select the Spotify Connect device the decks drive.`,
	RunE:  runConfigSetDevice,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetDeviceCmd)
	rootCmd.AddCommand(configCmd)
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
)

// settableKeys lists the keys 'config set' accepts and how to parse them.
var settableKeys = map[string]keyKind{
	"spotify.client_id":           kindString,
	"spotify.device":              kindString,
	"spotify.token_file":          kindString,
	"mixer.crossfader":            kindFloat,
	"mixer.volume_a":              kindFloat,
	"mixer.volume_b":              kindFloat,
	"mixer.reconcile_interval_ms": kindInt,
	"mixer.animation_interval_ms": kindInt,
	"autofade.enabled":            kindBool,
	"autofade.duration":           kindFloat,
	"autofade.trigger_lead":       kindFloat,
	"autofade.curve":              kindString,
	"autofade.auto_activate_next": kindBool,
	"autofade.switch_timing":      kindFloat,
	"autofade.transition_effect":  kindString,
	"notify.listen":               kindString,
	"tui.theme":                   kindString,
	"tui.refresh_interval":        kindInt,
	"log.level":                   kindString,
	"log.file":                    kindString,
	"log.max_size_mb":             kindInt,
	"log.max_backups":             kindInt,
	"log.max_age_days":            kindInt,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return printJSON(cfg)
	}

	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := writeConfigFile(configPath, config.Default()); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "created",
			"path":   configPath,
		})
	}
	fmt.Printf("Created config file: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set your Spotify client ID with 'riffdeck config set spotify.client_id <id>'")
	fmt.Println("  2. Pick a device with 'riffdeck config set-device'")
	fmt.Println("  3. Try the console without Spotify: 'riffdeck mix --simulate'")
	return nil
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := updateConfigFile(getConfigPath(), map[string]string{key: value}); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// updateConfigFile sets each key to its value in the TOML file at path,
// keeping the keys it does not touch. The result must still validate.
func updateConfigFile(path string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'riffdeck config init' first", path)
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	for key, value := range values {
		kind, ok := settableKeys[key]
		if !ok {
			return fmt.Errorf("unknown key %q (supported: %s)", key, strings.Join(sortedKeys(), ", "))
		}
		typed, err := parseValue(kind, value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		section, field, _ := strings.Cut(key, ".")
		sectionMap, ok := raw[section].(map[string]any)
		if !ok {
			sectionMap = map[string]any{}
			raw[section] = sectionMap
		}
		sectionMap[field] = typed
	}

	// Round-trip through the typed config so a bad value never lands on disk.
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	check := &config.Config{}
	if _, err := toml.Decode(buf.String(), check); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return err
	}

	return writeConfigFile(path, raw)
}

func parseValue(kind keyKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

func sortedKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeConfigFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(configHeader); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	encoder := toml.NewEncoder(f)
	encoder.Indent = "  "
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func runConfigSetDevice(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	logger, err := newLogger(nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := newSpotifyPlayer(logger)
	if err != nil {
		return err
	}
	if err := p.LoadToken(); err != nil {
		return err
	}
	devices, err := p.GetDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices found. Make sure Spotify is open on at least one device")
	}

	var options []huh.Option[string]
	for _, d := range devices {
		label := d.Name
		if d.Type != "" {
			label = fmt.Sprintf("%s (%s)", d.Name, d.Type)
		}
		if d.IsActive {
			label += " [active]"
		}
		options = append(options, huh.NewOption(label, d.Name))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select playback device").
				Description("Both decks play through this Spotify Connect device").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	return runConfigSet(cmd, []string{"spotify.device", selected})
}

