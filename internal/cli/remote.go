package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/binding"
	"github.com/tessro/riffdeck/internal/core"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/spotify/auth"
	"github.com/tessro/riffdeck/internal/spotify/client"
	"github.com/tessro/riffdeck/internal/spotify/player"
)

// defaultSimLength is the length of a simulated track with no explicit
// duration.
const defaultSimLength = 3 * time.Minute

// remote is a remote player together with how tracks are found for it.
type remote struct {
	player core.RemotePlayer
	lookup func(ctx context.Context, ref string) (*core.Track, error)
}

func newRemote(simulate bool, logger *zap.Logger) (*remote, error) {
	if simulate {
		sim := binding.NewSimulator(nil, core.FullCapabilities())
		return &remote{
			player: sim,
			lookup: func(_ context.Context, ref string) (*core.Track, error) {
				t, err := parseSimTrack(ref)
				if err != nil {
					return nil, err
				}
				sim.AddTrack(t.URI, t.Duration)
				return t, nil
			},
		}, nil
	}

	p, err := newSpotifyPlayer(logger)
	if err != nil {
		return nil, err
	}
	return &remote{player: p, lookup: p.LookupTrack}, nil
}

func newSpotifyPlayer(logger *zap.Logger) (*player.Player, error) {
	if cfg.Spotify.ClientID == "" {
		return nil, rerrors.WithSuggestion(
			fmt.Errorf("%w: spotify.client_id not set", rerrors.ErrInvalidConfig),
			"Set spotify.client_id with 'riffdeck config set', or run with --simulate")
	}

	storage, err := auth.NewTokenStorage(cfg.Spotify.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token storage: %w", err)
	}
	c := client.New(cfg.Spotify.ClientID, storage, client.WithLogger(logger))
	return player.New(c, cfg.Spotify.Device, logger), nil
}

// parseSimTrack turns "Title" or "Title@3m20s" into a simulated track.
func parseSimTrack(ref string) (*core.Track, error) {
	title, length, found := strings.Cut(strings.TrimSpace(ref), "@")
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("empty track name in %q", ref)
	}

	d := defaultSimLength
	if found {
		var err error
		d, err = time.ParseDuration(strings.TrimSpace(length))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid track length in %q", ref)
		}
	}

	id := strings.ToLower(strings.Join(strings.Fields(title), "-"))
	return &core.Track{
		ID:       id,
		URI:      "sim:track:" + id,
		Title:    title,
		Artist:   "Simulator",
		Duration: d,
		Source:   core.SourceSimulated,
	}, nil
}
