package analysis

import (
	"strings"

	"github.com/flowenci/interview-coach/internal/stt"
)

// PauseThreshold is the minimum gap between words, in seconds, that counts as a pause
const PauseThreshold = 2.0

// Pace categories
const (
	PaceVerySlow = "very_slow"
	PaceSlow     = "slow"
	PaceIdeal    = "ideal"
	PaceFast     = "fast"
	PaceVeryFast = "very_fast"
)

// Pause is a silence before a word
type Pause struct {
	BeforeWord string  `json:"before_word"`
	Duration   float64 `json:"duration"`
}

// WordCount splits on whitespace
func WordCount(transcript string) int {
	return len(strings.Fields(transcript))
}

// WordsPerMinute returns 0 when the duration is unknown
func WordsPerMinute(transcript string, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return roundTo(float64(WordCount(transcript))/durationSeconds*60, 1)
}

// EvaluatePace maps wpm to a category
func EvaluatePace(wpm float64) string {
	switch {
	case wpm < 90:
		return PaceVerySlow
	case wpm < 120:
		return PaceSlow
	case wpm <= 160:
		return PaceIdeal
	case wpm <= 190:
		return PaceFast
	default:
		return PaceVeryFast
	}
}

// DetectPauses scans consecutive words in the order given.
// Words must already be chronological.
func DetectPauses(words []stt.Word, threshold float64) []Pause {
	pauses := []Pause{}
	for i := 1; i < len(words); i++ {
		gap := words[i].Start - words[i-1].End
		if gap >= threshold {
			pauses = append(pauses, Pause{BeforeWord: words[i].Text, Duration: roundTo(gap, 2)})
		}
	}
	return pauses
}
