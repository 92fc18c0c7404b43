package analysis

// Confidence flags
const (
	FlagHighFiller     = "high_filler_count"
	FlagModerateFiller = "moderate_filler_count"
	FlagPaceIssue      = "pace_issue"
	FlagManyPauses     = "many_pauses"
	FlagTooShort       = "too_short"
)

// ScoreInput carries the measured delivery metrics
type ScoreInput struct {
	FillerCount     int
	DurationSeconds float64
	PauseCount      int
	WPM             float64
	StarScore       *float64
}

// ScoreResult is the composite score. Flags are in rule order.
type ScoreResult struct {
	ConfidenceScore float64  `json:"confidence_score"`
	ReadinessScore  float64  `json:"readiness_score"`
	Flags           []string `json:"flags"`
}

// ScoreConfidence applies the additive penalty model starting from 100.
// A zero wpm means the pace is unknown and is not penalized.
func ScoreConfidence(in ScoreInput) ScoreResult {
	flags := []string{}
	score := 100.0

	switch {
	case in.FillerCount > 15:
		score -= 25
		flags = append(flags, FlagHighFiller)
	case in.FillerCount > 8:
		score -= 15
		flags = append(flags, FlagModerateFiller)
	case in.FillerCount > 4:
		score -= 5
	}

	if in.WPM != 0 {
		switch {
		case in.WPM > 190 || in.WPM < 80:
			score -= 20
			flags = append(flags, FlagPaceIssue)
		case in.WPM > 165 || in.WPM < 100:
			score -= 10
		}
	}

	switch {
	case in.PauseCount >= 6:
		score -= 15
		flags = append(flags, FlagManyPauses)
	case in.PauseCount >= 3:
		score -= 5
	}

	switch {
	case in.DurationSeconds < 30:
		score -= 20
		flags = append(flags, FlagTooShort)
	case in.DurationSeconds < 50:
		score -= 10
	}

	confidence := clamp(score, 0, 100)
	readiness := confidence
	if in.StarScore != nil {
		readiness = confidence*0.6 + *in.StarScore*0.4
	}

	return ScoreResult{
		ConfidenceScore: roundTo(confidence, 1),
		ReadinessScore:  roundTo(clamp(readiness, 0, 100), 1),
		Flags:           flags,
	}
}
