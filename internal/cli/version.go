package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			Commit:    Commit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		if JSONOutput() {
			return printJSON(info)
		}

		fmt.Printf("riffdeck %s\n", info.Version)
		if Verbose() {
			table := NewTable()
			table.Row("  commit:", info.Commit)
			table.Row("  built:", info.BuildDate)
			table.Row("  go version:", info.GoVersion)
			table.Row("  platform:", info.Platform)
			table.Flush()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
