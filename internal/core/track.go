package core

import "time"

// Source indicates the origin platform of a track.
type Source string

const (
	SourceSpotify   Source = "spotify"
	SourceSimulated Source = "simulated"
)

// Track represents a playable audio track. Tracks are immutable once built;
// deck-specific preparation lives on the deck, not here.
type Track struct {
	ID          string        `json:"id"`
	URI         string        `json:"uri"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Album       string        `json:"album"`
	Duration    time.Duration `json:"duration"`
	PreviewURI  string        `json:"preview_uri,omitempty"`
	AlbumArtURI string        `json:"album_art_uri,omitempty"`
	Source      Source        `json:"source"`
}

// DurationSec returns the track duration in seconds.
func (t *Track) DurationSec() float64 {
	if t == nil {
		return 0
	}
	return t.Duration.Seconds()
}

// HasPreview returns true if the track carries a preview clip.
func (t *Track) HasPreview() bool {
	return t != nil && t.PreviewURI != ""
}
