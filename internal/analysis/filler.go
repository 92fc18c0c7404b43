// Package analysis turns a transcript with word timings into delivery metrics
// and a composite readiness score.
package analysis

import (
	"math"
	"regexp"
	"strings"
)

// FillerWords are matched case-insensitively on word boundaries.
// Overlapping phrases ("basically" / "so basically") are counted independently.
var FillerWords = []string{
	"um", "uh", "uhh", "umm", "like", "basically", "literally",
	"you know", "right", "okay so", "so basically", "kind of", "sort of",
	"actually", "honestly", "just", "i mean", "anyway", "obviously",
	"absolutely", "you see", "i think", "i feel like", "and stuff",
}

var fillerPatterns = compileFillers(FillerWords)

func compileFillers(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return patterns
}

// FillerReport is the filler count plus per-phrase occurrences (nonzero only)
type FillerReport struct {
	TotalCount int            `json:"total_count"`
	Detail     map[string]int `json:"detail"`
}

// DetectFillers scans the transcript for filler expressions
func DetectFillers(transcript string) FillerReport {
	report := FillerReport{Detail: map[string]int{}}
	text := strings.ToLower(transcript)
	if strings.TrimSpace(text) == "" {
		return report
	}

	for i, re := range fillerPatterns {
		if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
			report.Detail[FillerWords[i]] = n
			report.TotalCount += n
		}
	}
	return report
}

// FillerRatePerMinute is fillers per minute of audio, two decimals
func FillerRatePerMinute(fillerCount int, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return roundTo(float64(fillerCount)/durationSeconds*60, 2)
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
