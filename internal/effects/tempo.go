package effects

import (
	"strings"

	"github.com/tessro/riffdeck/internal/core"
)

// TempoEstimator guesses a track's BPM for the beat cue.
type TempoEstimator interface {
	EstimateBPM(t *core.Track) int
}

// DefaultBPM is returned when nothing better is known.
const DefaultBPM = 120

// KeywordEstimator guesses tempo from genre words in the title. It is a
// placeholder for the beat cue and nothing depends on its accuracy.
type KeywordEstimator struct{}

var tempoKeywords = []struct {
	word string
	bpm  int
}{
	{"drum and bass", 174},
	{"dnb", 174},
	{"dubstep", 140},
	{"trance", 138},
	{"techno", 130},
	{"house", 124},
	{"disco", 118},
	{"hip hop", 90},
	{"ballad", 72},
	{"acoustic", 80},
}

// EstimateBPM implements TempoEstimator.
func (KeywordEstimator) EstimateBPM(t *core.Track) int {
	if t == nil {
		return DefaultBPM
	}
	title := strings.ToLower(t.Title)
	for _, k := range tempoKeywords {
		if strings.Contains(title, k.word) {
			return k.bpm
		}
	}
	return DefaultBPM
}
