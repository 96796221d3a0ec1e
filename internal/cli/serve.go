package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/config"
	"github.com/tessro/riffdeck/internal/deck"
	"github.com/tessro/riffdeck/internal/mixer"
	"github.com/tessro/riffdeck/internal/notify"
)

var (
	serveDeckA     string
	serveDeckB     string
	serveSimulate  bool
	serveAutofade  bool
	serveListen    string
	serveTemplate  string
	serveTimestamp bool
	serveTicks     bool
	serveNoEmoji   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mixer without the console",
	Long: `Runs the mixer headless: loads the given tracks, starts deck A and
prints transition events as they happen. With notify.listen (or --listen)
set, events are also streamed to WebSocket clients at /events, and the
console state is served as JSON at /snapshot.

Tracks are Spotify track URIs, links or IDs. With --simulate they are
names with an optional length, e.g. "Opener@45s".

Template variables: {{.Kind}}, {{.Deck}}, {{.Direction}}, {{.Progress}},
{{.TargetBPM}}, {{.Reason}}, {{.Time}}`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveDeckA, "deck-a", "a", "", "track for deck A")
	serveCmd.Flags().StringVarP(&serveDeckB, "deck-b", "b", "", "track for deck B")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "use the built-in simulated player")
	serveCmd.Flags().BoolVar(&serveAutofade, "autofade", false, "enable auto-crossfade regardless of config")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address for the event stream (overrides notify.listen)")
	serveCmd.Flags().StringVarP(&serveTemplate, "template", "t", "", "custom output template")
	serveCmd.Flags().BoolVar(&serveTimestamp, "timestamp", false, "show timestamps")
	serveCmd.Flags().BoolVar(&serveTicks, "ticks", false, "print animation ticks")
	serveCmd.Flags().BoolVar(&serveNoEmoji, "no-emoji", false, "disable emoji output")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveAutofade {
		cfg.AutoFade.Enabled = true
	}
	if serveListen != "" {
		cfg.Notify.Listen = serveListen
	}

	r, err := newRemote(serveSimulate, logger)
	if err != nil {
		return err
	}
	m, err := mixer.New(mixer.Options{Remote: r.player, Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	events, unsubscribe := m.Events()
	defer unsubscribe()

	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()
	watchConfig(ctx, m, logger)

	if err := loadDecks(ctx, m, r, [2]string{serveDeckA, serveDeckB}); err != nil {
		return err
	}
	if serveDeckA != "" {
		if err := m.Activate(ctx, deck.A, false); err != nil {
			return err
		}
	}

	hubErr := make(chan error, 1)
	if cfg.Notify.Listen != "" {
		hub := notify.NewHub(m.Bus(), logger)
		hub.SetSnapshot(func() any { return m.Snapshot() })
		go func() { hubErr <- hub.ListenAndServe(ctx, cfg.Notify.Listen) }()
	}

	formatter := notify.NewFormatter(
		notify.WithEmoji(!serveNoEmoji),
		notify.WithTimestamp(serveTimestamp),
		notify.WithTicks(serveTicks),
		notify.WithTemplate(serveTemplate),
	)

	if !JSONOutput() {
		for _, d := range m.Snapshot().Decks {
			if d.Track != nil {
				fmt.Printf("Deck %s: %s (%s)\n", d.Label, d.Track.Title, FormatDuration(int(d.DurationSec)))
			}
		}
		fmt.Println("Serving mixer... (Ctrl+C to stop)")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-hubErr:
			if err != nil {
				return fmt.Errorf("event stream: %w", err)
			}
		case e := <-events:
			if JSONOutput() {
				if e.Kind == notify.KindTick && !serveTicks {
					continue
				}
				data, err := json.Marshal(e)
				if err != nil {
					logger.Warn("encode event", zap.Error(err))
					continue
				}
				fmt.Println(string(data))
				continue
			}
			if line := formatter.Format(e); line != "" {
				fmt.Println(line)
			}
		}
	}
}

// loadDecks resolves and prepares refs on decks A and B. Empty refs are
// skipped.
func loadDecks(ctx context.Context, m *mixer.Mixer, r *remote, refs [2]string) error {
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		l := deck.Labels[i]
		track, err := r.lookup(ctx, ref)
		if err != nil {
			return fmt.Errorf("deck %s: %w", l, err)
		}
		if err := m.LoadTrack(l, track); err != nil {
			return fmt.Errorf("deck %s: %w", l, err)
		}
		if err := m.Prepare(l, 0); err != nil {
			return fmt.Errorf("deck %s: %w", l, err)
		}
	}
	return nil
}

// watchConfig applies [autofade] edits to the running mixer until ctx is
// done. Nothing is watched when no config file exists.
func watchConfig(ctx context.Context, m *mixer.Mixer, logger *zap.Logger) {
	path := cfgFile
	if path == "" {
		path = config.Path()
	}
	if path == "" {
		return
	}

	go func() {
		err := config.Watch(ctx, path, logger, func(c *config.Config) {
			if err := m.ReloadAutoFade(c.AutoFade); err != nil {
				logger.Warn("autofade reload rejected", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()
}
