// Package player adapts the Spotify Web API to the mixer's remote player
// contract.
package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/core"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/logging"
	"github.com/tessro/riffdeck/internal/spotify/auth"
	"github.com/tessro/riffdeck/internal/spotify/client"
)

// Player implements core.RemotePlayer for Spotify Connect.
type Player struct {
	client *client.Client
	logger *zap.Logger

	// device is the configured device name or ID; deviceID is what it
	// resolved to on Connect.
	device string

	mu       sync.RWMutex
	deviceID string
}

// New creates a player. device may be empty to use whatever device is
// active.
func New(c *client.Client, device string, logger *zap.Logger) *Player {
	return &Player{
		client: c,
		device: device,
		logger: logging.OrNop(logger).Named("player"),
	}
}

func (p *Player) target() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deviceID
}

// LoadToken reads the stored token without contacting Spotify.
func (p *Player) LoadToken() error {
	return p.client.LoadToken()
}

// Connect loads the token, reads the account tier and resolves the
// configured device.
func (p *Player) Connect(ctx context.Context) (core.Capabilities, error) {
	if err := p.client.LoadToken(); err != nil {
		return core.Capabilities{}, err
	}
	if missing := p.client.Token().MissingScopes(auth.RequiredScopes); len(missing) > 0 {
		p.logger.Warn("token lacks scopes", zap.Strings("missing", missing))
	}

	user, err := p.client.GetCurrentUser(ctx)
	if err != nil {
		return core.Capabilities{}, err
	}

	caps := core.PreviewCapabilities()
	if user.IsPremium() {
		caps = core.FullCapabilities()
	}

	if p.device != "" {
		id, err := p.resolveDevice(ctx, p.device)
		if err != nil {
			return core.Capabilities{}, err
		}
		p.mu.Lock()
		p.deviceID = id
		p.mu.Unlock()
	}

	p.logger.Info("connected",
		zap.String("user", user.ID),
		zap.String("product", user.Product),
		zap.String("device", p.target()))
	return caps, nil
}

// resolveDevice matches ref against device IDs, then names, ignoring case.
func (p *Player) resolveDevice(ctx context.Context, ref string) (string, error) {
	devices, err := p.client.GetDevices(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.ID == ref {
			return d.ID, nil
		}
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, ref) {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", rerrors.ErrDeviceNotFound, ref)
}

// PlayTrack starts uri at positionMs.
func (p *Player) PlayTrack(ctx context.Context, uri string, positionMs int) error {
	if positionMs < 0 {
		positionMs = 0
	}
	return p.client.Play(ctx, p.target(), &client.PlayOptions{
		URIs:       []string{uri},
		PositionMS: positionMs,
	})
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.client.Pause(ctx, p.target())
}

// Resume continues the current track. Resuming a track that is already
// playing is not an error.
func (p *Player) Resume(ctx context.Context) error {
	err := p.client.Play(ctx, p.target(), nil)
	if client.IsAlreadyPlayingError(err) {
		return nil
	}
	return err
}

// Seek seeks to a position in the current track.
func (p *Player) Seek(ctx context.Context, positionMs int) error {
	return p.client.Seek(ctx, positionMs, p.target())
}

// Volume sets the playback volume (0-100).
func (p *Player) Volume(ctx context.Context, percent int) error {
	return p.client.SetVolume(ctx, percent, p.target())
}

// GetState returns the current playback state, or nil when nothing is
// loaded.
func (p *Player) GetState(ctx context.Context) (*core.PlaybackState, error) {
	state, err := p.client.GetPlaybackState(ctx)
	if err != nil {
		return nil, err
	}
	return convertState(state), nil
}

// TransferPlayback moves playback to deviceID and targets it from then on.
func (p *Player) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if err := p.client.TransferPlayback(ctx, deviceID, play); err != nil {
		return err
	}
	p.mu.Lock()
	p.deviceID = deviceID
	p.mu.Unlock()
	return nil
}

// GetDevices returns the user's available playback devices.
func (p *Player) GetDevices(ctx context.Context) ([]core.Device, error) {
	devices, err := p.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]core.Device, len(devices))
	for i, d := range devices {
		result[i] = *convertDevice(&d)
	}
	return result, nil
}

// LookupTrack builds a track from a Spotify URI, open.spotify.com link or
// bare ID.
func (p *Player) LookupTrack(ctx context.Context, ref string) (*core.Track, error) {
	id, err := ParseTrackID(ref)
	if err != nil {
		return nil, err
	}
	t, err := p.client.GetTrack(ctx, id)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorInfo.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", rerrors.ErrTrackNotFound, ref)
		}
		return nil, fmt.Errorf("look up %s: %w", ref, err)
	}
	return convertTrack(t), nil
}

// ParseTrackID extracts the track ID from ref.
func ParseTrackID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "spotify:track:"):
		ref = strings.TrimPrefix(ref, "spotify:track:")
	case strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid track link %q: %w", ref, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", fmt.Errorf("not a track link: %q", ref)
		}
		ref = parts[len(parts)-1]
	case strings.Contains(ref, ":"):
		return "", fmt.Errorf("not a track URI: %q", ref)
	}
	if ref == "" {
		return "", fmt.Errorf("empty track reference")
	}
	return ref, nil
}

func convertState(state *client.PlaybackState) *core.PlaybackState {
	if state == nil || state.Item == nil {
		return nil
	}

	s := &core.PlaybackState{
		TrackURI: state.Item.URI,
		Track:    convertTrack(state.Item),
		Paused:   !state.IsPlaying,
		Position: time.Duration(state.ProgressMS) * time.Millisecond,
		Duration: time.Duration(state.Item.DurationMS) * time.Millisecond,
	}
	if state.Device.VolumePercent != nil {
		s.Volume = *state.Device.VolumePercent
	}
	if state.Device.ID != "" {
		s.Device = convertDevice(&state.Device)
	}
	return s
}

// convertTrack converts a Spotify track to a core track.
func convertTrack(t *client.Track) *core.Track {
	if t == nil {
		return nil
	}

	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	track := &core.Track{
		ID:         t.ID,
		URI:        t.URI,
		Title:      t.Name,
		Artist:     strings.Join(artists, ", "),
		Album:      t.Album.Name,
		Duration:   time.Duration(t.DurationMS) * time.Millisecond,
		PreviewURI: t.PreviewURL,
		Source:     core.SourceSpotify,
	}
	if len(t.Album.Images) > 0 {
		track.AlbumArtURI = t.Album.Images[0].URL
	}
	return track
}

// convertDevice converts a Spotify device to a core device.
func convertDevice(d *client.Device) *core.Device {
	if d == nil {
		return nil
	}

	deviceType := core.DeviceType(strings.ToLower(d.Type))
	switch d.Type {
	case "Computer":
		deviceType = core.DeviceTypeComputer
	case "Smartphone":
		deviceType = core.DeviceTypePhone
	case "Speaker", "AVR":
		deviceType = core.DeviceTypeSpeaker
	case "TV", "CastVideo":
		deviceType = core.DeviceTypeTV
	}

	return &core.Device{
		ID:             d.ID,
		Name:           d.Name,
		Type:           deviceType,
		IsActive:       d.IsActive,
		SupportsVolume: d.SupportsVolume,
	}
}

var _ core.RemotePlayer = (*Player)(nil)
