package core

import "time"

// DefaultPreviewLength is the clip length served to preview-only accounts.
const DefaultPreviewLength = 30 * time.Second

// Capabilities describes what the bound account may play.
type Capabilities struct {
	FullPlayback  bool          `json:"full_playback"`
	PreviewLength time.Duration `json:"preview_length"`
}

// FullCapabilities returns capabilities for a full-playback account.
func FullCapabilities() Capabilities {
	return Capabilities{FullPlayback: true}
}

// PreviewCapabilities returns capabilities for a preview-only account.
func PreviewCapabilities() Capabilities {
	return Capabilities{PreviewLength: DefaultPreviewLength}
}

// Resolve maps a play request onto what the account can address.
// Preview-only accounts always start the preview clip from zero.
func (c Capabilities) Resolve(t *Track, positionMs int) (string, int) {
	if t == nil {
		return "", 0
	}
	if c.FullPlayback || !t.HasPreview() {
		if positionMs < 0 {
			positionMs = 0
		}
		return t.URI, positionMs
	}
	return t.PreviewURI, 0
}

// PlayableDuration returns how much of the track the account can hear.
func (c Capabilities) PlayableDuration(t *Track) time.Duration {
	if t == nil {
		return 0
	}
	if c.FullPlayback || !t.HasPreview() {
		return t.Duration
	}
	limit := c.PreviewLength
	if limit <= 0 {
		limit = DefaultPreviewLength
	}
	if t.Duration > 0 && t.Duration < limit {
		return t.Duration
	}
	return limit
}
