package core

import "time"

// PlaybackState is a snapshot of what the remote player reports.
type PlaybackState struct {
	TrackURI string        `json:"track_uri"`
	Track    *Track        `json:"track,omitempty"`
	Device   *Device       `json:"device,omitempty"`
	Paused   bool          `json:"paused"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
	Volume   int           `json:"volume"`
}

// HasTrack returns true if the remote player has a current track.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.TrackURI != ""
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	return float64(s.Position) / float64(s.Duration) * 100
}
