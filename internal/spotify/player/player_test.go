package player

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tessro/riffdeck/internal/core"
	rerrors "github.com/tessro/riffdeck/internal/errors"
	"github.com/tessro/riffdeck/internal/spotify/auth"
	"github.com/tessro/riffdeck/internal/spotify/client"
)

func TestConvertTrack(t *testing.T) {
	spotifyTrack := &client.Track{
		ID:         "track123",
		URI:        "spotify:track:track123",
		Name:       "Test Song",
		DurationMS: 180000,
		PreviewURL: "https://p.scdn.co/mp3-preview/abc",
		Artists: []client.Artist{
			{Name: "Artist One"},
			{Name: "Artist Two"},
		},
		Album: client.Album{
			Name:   "Test Album",
			Images: []client.Image{{URL: "https://i.scdn.co/image/big"}, {URL: "https://i.scdn.co/image/small"}},
		},
	}

	coreTrack := convertTrack(spotifyTrack)

	if coreTrack.ID != "track123" {
		t.Errorf("ID = %q, want %q", coreTrack.ID, "track123")
	}
	if coreTrack.Title != "Test Song" {
		t.Errorf("Title = %q, want %q", coreTrack.Title, "Test Song")
	}
	if coreTrack.Artist != "Artist One, Artist Two" {
		t.Errorf("Artist = %q, want %q", coreTrack.Artist, "Artist One, Artist Two")
	}
	if coreTrack.Album != "Test Album" {
		t.Errorf("Album = %q, want %q", coreTrack.Album, "Test Album")
	}
	if coreTrack.Duration != 180*time.Second {
		t.Errorf("Duration = %v, want %v", coreTrack.Duration, 180*time.Second)
	}
	if !coreTrack.HasPreview() {
		t.Error("HasPreview() = false, want true")
	}
	if coreTrack.AlbumArtURI != "https://i.scdn.co/image/big" {
		t.Errorf("AlbumArtURI = %q, want the largest image", coreTrack.AlbumArtURI)
	}
	if coreTrack.Source != core.SourceSpotify {
		t.Errorf("Source = %q, want %q", coreTrack.Source, core.SourceSpotify)
	}
}

func TestConvertDevice(t *testing.T) {
	tests := []struct {
		spotifyType string
		want        core.DeviceType
	}{
		{"Speaker", core.DeviceTypeSpeaker},
		{"Computer", core.DeviceTypeComputer},
		{"Smartphone", core.DeviceTypePhone},
		{"TV", core.DeviceTypeTV},
		{"GameConsole", core.DeviceType("gameconsole")},
	}

	for _, tt := range tests {
		d := convertDevice(&client.Device{ID: "d1", Name: "My Speaker", Type: tt.spotifyType, IsActive: true, SupportsVolume: true})
		if d.Type != tt.want {
			t.Errorf("Type for %q = %q, want %q", tt.spotifyType, d.Type, tt.want)
		}
		if d.ID != "d1" || d.Name != "My Speaker" || !d.IsActive || !d.SupportsVolume {
			t.Errorf("device = %+v", d)
		}
	}
}

func TestConvertState(t *testing.T) {
	vol := 40
	state := convertState(&client.PlaybackState{
		Device:     client.Device{ID: "d1", Name: "Kitchen", Type: "Speaker", VolumePercent: &vol},
		ProgressMS: 42300,
		IsPlaying:  false,
		Item:       &client.Track{ID: "x", URI: "spotify:track:x", DurationMS: 200000},
	})

	if state.TrackURI != "spotify:track:x" {
		t.Errorf("TrackURI = %q", state.TrackURI)
	}
	if !state.Paused {
		t.Error("Paused = false for a stopped player")
	}
	if state.Position != 42300*time.Millisecond || state.Duration != 200*time.Second {
		t.Errorf("position %v duration %v", state.Position, state.Duration)
	}
	if state.Volume != 40 || state.Device == nil || state.Device.Name != "Kitchen" {
		t.Errorf("volume %d device %+v", state.Volume, state.Device)
	}

	if convertState(nil) != nil {
		t.Error("convertState(nil) != nil")
	}
	if convertState(&client.PlaybackState{IsPlaying: true}) != nil {
		t.Error("convertState() without item != nil")
	}
}

func TestConvertNil(t *testing.T) {
	if convertTrack(nil) != nil {
		t.Error("Expected nil track for nil input")
	}
	if convertDevice(nil) != nil {
		t.Error("Expected nil device for nil input")
	}
}

func TestParseTrackID(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", want: "4uLU6hMCjMI75M1A2tKUQC"},
		{ref: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", want: "4uLU6hMCjMI75M1A2tKUQC"},
		{ref: "https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC", want: "4uLU6hMCjMI75M1A2tKUQC"},
		{ref: "  4uLU6hMCjMI75M1A2tKUQC ", want: "4uLU6hMCjMI75M1A2tKUQC"},
		{ref: "spotify:album:1", wantErr: true},
		{ref: "https://open.spotify.com/album/1", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseTrackID(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTrackID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTrackID() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeAPI serves the few endpoints Connect and playback use.
type fakeAPI struct {
	product string
	devices []client.Device
	resume  int
	track   int

	mu    sync.Mutex
	paths []string
}

func (f *fakeAPI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[len(f.paths)-1]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()

	if id, ok := strings.CutPrefix(r.URL.Path, "/tracks/"); ok {
		f.serveTrack(w, id)
		return
	}

	switch r.URL.Path {
	case "/me":
		json.NewEncoder(w).Encode(client.User{ID: "dj", Product: f.product})
	case "/me/player/devices":
		json.NewEncoder(w).Encode(client.DevicesResponse{Devices: f.devices})
	case "/me/player/play":
		if f.resume != 0 {
			w.WriteHeader(f.resume)
			w.Write([]byte(`{"error":{"status":403,"message":"Restriction violated"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeAPI) serveTrack(w http.ResponseWriter, id string) {
	switch f.track {
	case 0:
		json.NewEncoder(w).Encode(client.Track{ID: id, URI: "spotify:track:" + id, Name: "Found", DurationMS: 200000})
	case http.StatusNotFound:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
	default:
		w.WriteHeader(f.track)
		w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
	}
}

func newTestPlayer(t *testing.T, api *fakeAPI, device string) *Player {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	storage, err := auth.NewTokenStorage(filepath.Join(t.TempDir(), "token.json"))
	if err != nil {
		t.Fatalf("NewTokenStorage() error = %v", err)
	}
	token := &auth.Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
	if err := storage.Save(token); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return New(client.New("id", storage, client.WithBaseURL(server.URL)), device, nil)
}

func TestConnectCapabilities(t *testing.T) {
	tests := []struct {
		product string
		full    bool
	}{
		{"premium", true},
		{"free", false},
		{"open", false},
	}

	for _, tt := range tests {
		t.Run(tt.product, func(t *testing.T) {
			p := newTestPlayer(t, &fakeAPI{product: tt.product}, "")
			caps, err := p.Connect(context.Background())
			if err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			if caps.FullPlayback != tt.full {
				t.Errorf("FullPlayback = %v, want %v", caps.FullPlayback, tt.full)
			}
			if !tt.full && caps.PreviewLength != core.DefaultPreviewLength {
				t.Errorf("PreviewLength = %v, want %v", caps.PreviewLength, core.DefaultPreviewLength)
			}
		})
	}
}

func TestConnectResolvesDevice(t *testing.T) {
	api := &fakeAPI{
		product: "premium",
		devices: []client.Device{{ID: "abc", Name: "Living Room"}, {ID: "def", Name: "Kitchen"}},
	}
	p := newTestPlayer(t, api, "kitchen")
	if _, err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := p.PlayTrack(context.Background(), "spotify:track:x", 1000); err != nil {
		t.Fatalf("PlayTrack() error = %v", err)
	}
	if last := api.last(); last != "PUT /me/player/play?device_id=def" {
		t.Errorf("last request = %q, want play on def", last)
	}
}

func TestConnectUnknownDevice(t *testing.T) {
	p := newTestPlayer(t, &fakeAPI{product: "premium"}, "Garage")
	if _, err := p.Connect(context.Background()); !errors.Is(err, rerrors.ErrDeviceNotFound) {
		t.Errorf("Connect() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestResumeAlreadyPlaying(t *testing.T) {
	p := newTestPlayer(t, &fakeAPI{product: "premium", resume: http.StatusForbidden}, "")
	if _, err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := p.Resume(context.Background()); err != nil {
		t.Errorf("Resume() error = %v, want nil when already playing", err)
	}
}

func TestLookupTrack(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"found", 0, nil},
		{"missing", http.StatusNotFound, rerrors.ErrTrackNotFound},
		{"expired token", http.StatusUnauthorized, rerrors.ErrNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlayer(t, &fakeAPI{product: "premium", track: tt.status}, "")
			if err := p.LoadToken(); err != nil {
				t.Fatalf("LoadToken() error = %v", err)
			}

			track, err := p.LookupTrack(context.Background(), "spotify:track:abc123")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("LookupTrack() error = %v", err)
				}
				if track.URI != "spotify:track:abc123" || track.Title != "Found" {
					t.Errorf("LookupTrack() = %+v, want abc123 Found", track)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LookupTrack() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != rerrors.ErrTrackNotFound && errors.Is(err, rerrors.ErrTrackNotFound) {
				t.Errorf("LookupTrack() error = %v, reported as track not found", err)
			}
		})
	}
}
