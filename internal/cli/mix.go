package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/mixer"
	"github.com/tessro/riffdeck/internal/tui"
)

var (
	mixDeckA    string
	mixDeckB    string
	mixSimulate bool
	mixAutofade bool
)

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Open the mixing console",
	Long: `Opens the interactive two-deck console. Logs go to log.file only,
since the console owns the terminal.

Tracks are Spotify track URIs, links or IDs. With --simulate they are
names with an optional length, e.g. "Opener@45s".`,
	RunE: runMix,
}

func init() {
	mixCmd.Flags().StringVarP(&mixDeckA, "deck-a", "a", "", "track for deck A")
	mixCmd.Flags().StringVarP(&mixDeckB, "deck-b", "b", "", "track for deck B")
	mixCmd.Flags().BoolVar(&mixSimulate, "simulate", false, "use the built-in simulated player")
	mixCmd.Flags().BoolVar(&mixAutofade, "autofade", false, "enable auto-crossfade regardless of config")
	rootCmd.AddCommand(mixCmd)
}

func runMix(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if mixAutofade {
		cfg.AutoFade.Enabled = true
	}

	r, err := newRemote(mixSimulate, logger)
	if err != nil {
		return err
	}
	m, err := mixer.New(mixer.Options{Remote: r.player, Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()
	watchConfig(ctx, m, logger)

	if err := loadDecks(ctx, m, r, [2]string{mixDeckA, mixDeckB}); err != nil {
		return err
	}

	refresh := time.Duration(cfg.TUI.RefreshInterval) * time.Millisecond
	logger.Info("console opened", zap.Bool("simulate", mixSimulate))
	return tui.Run(m, r.lookup, refresh, cfg.TUI.Theme)
}
