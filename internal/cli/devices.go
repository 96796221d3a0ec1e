package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/riffdeck/internal/core"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List Spotify Connect devices",
	Long:  `Lists the Spotify Connect devices the decks can drive. The configured device is marked.`,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	logger, err := newLogger(os.Stderr)
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

	if JSONOutput() {
		if devices == nil {
			devices = []core.Device{}
		}
		return printJSON(devices)
	}
	if len(devices) == 0 {
		fmt.Println("No devices found")
		return nil
	}

	table := NewTable("", "NAME", "TYPE", "VOLUME", "ID")
	for _, d := range devices {
		name := d.Name
		if matchesDevice(d, cfg.Spotify.Device) {
			name += " (configured)"
		}
		volume := "no"
		if d.SupportsVolume {
			volume = "yes"
		}
		table.Row(StatusIcon(d.IsActive), getDeviceIcon(d.Type)+" "+TruncateString(name, 40), string(d.Type), volume, d.ID)
	}
	table.Flush()
	return nil
}

func matchesDevice(d core.Device, ref string) bool {
	return ref != "" && (d.ID == ref || strings.EqualFold(d.Name, ref))
}

func getDeviceIcon(deviceType core.DeviceType) string {
	switch deviceType {
	case core.DeviceTypeComputer:
		return "💻"
	case core.DeviceTypePhone:
		return "📱"
	case core.DeviceTypeSpeaker:
		return "🔊"
	case core.DeviceTypeTV:
		return "📺"
	case core.DeviceTypeBrowser:
		return "🌐"
	default:
		return "🎧"
	}
}
