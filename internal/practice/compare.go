package practice

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/flowenci/interview-coach/internal/store"
)

var (
	// ErrNotEnoughAttempts is returned when fewer than two attempts are done
	ErrNotEnoughAttempts = errors.New("need at least 2 completed attempts to compare")
	// ErrFeedbackMissing is returned when a done attempt has no stored feedback
	ErrFeedbackMissing = errors.New("feedback not found for one or both attempts")
)

// AttemptSummary is the headline metrics of one attempt
type AttemptSummary struct {
	AttemptNumber  int     `json:"attempt_number"`
	FillerCount    int     `json:"filler_count"`
	WPM            float64 `json:"wpm"`
	ReadinessScore float64 `json:"readiness_score"`
}

// Improvements compares the latest attempt against the first
type Improvements struct {
	FillerReduction    int     `json:"filler_reduction"`
	FillerReductionPct int     `json:"filler_reduction_pct"`
	ReadinessGain      float64 `json:"readiness_gain"`
}

// Comparison is the first-versus-latest view for one question
type Comparison struct {
	QuestionID    string         `json:"question_id"`
	TotalAttempts int            `json:"total_attempts"`
	FirstAttempt  AttemptSummary `json:"first_attempt"`
	LatestAttempt AttemptSummary `json:"latest_attempt"`
	Improvements  Improvements   `json:"improvements"`
	Summary       string         `json:"summary"`
}

// CompareAttempts loads a user's done attempts at a question and compares first with latest
func CompareAttempts(ctx context.Context, ds store.DataStore, userID, questionID string) (*Comparison, error) {
	recs, err := ds.ListDoneRecordings(ctx, userID, questionID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if len(recs) < 2 {
		return nil, ErrNotEnoughAttempts
	}
	first, latest := recs[0], recs[len(recs)-1]

	fbs, err := ds.FeedbacksForRecordings(ctx, []string{first.ID, latest.ID})
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	firstFb, latestFb := fbs[first.ID], fbs[latest.ID]
	if firstFb == nil || latestFb == nil {
		return nil, ErrFeedbackMissing
	}

	c := Compare(first, latest, firstFb, latestFb)
	c.QuestionID = questionID
	c.TotalAttempts = len(recs)
	return &c, nil
}

// Compare computes the improvement between two analysed attempts
func Compare(first, latest store.Recording, firstFb, latestFb *store.Feedback) Comparison {
	delta := firstFb.FillerWordCount - latestFb.FillerWordCount
	pct := int(math.Round(float64(delta) / float64(max(firstFb.FillerWordCount, 1)) * 100))

	return Comparison{
		FirstAttempt:  summarize(first, firstFb),
		LatestAttempt: summarize(latest, latestFb),
		Improvements: Improvements{
			FillerReduction:    delta,
			FillerReductionPct: pct,
			ReadinessGain:      round1(latestFb.ReadinessScore - firstFb.ReadinessScore),
		},
		Summary: CompareSummary(pct),
	}
}

// CompareSummary phrases a filler reduction percentage
func CompareSummary(pct int) string {
	switch {
	case pct >= 50:
		return fmt.Sprintf("🎉 %d%% fewer filler words - massive improvement!", pct)
	case pct >= 20:
		return fmt.Sprintf("✅ %d%% fewer filler words - good progress!", pct)
	case pct < 0:
		return "Filler words increased - focus on pausing instead of filling."
	default:
		return "Similar filler count - keep drilling on silent pauses."
	}
}

func summarize(rec store.Recording, fb *store.Feedback) AttemptSummary {
	return AttemptSummary{
		AttemptNumber:  rec.AttemptNumber,
		FillerCount:    fb.FillerWordCount,
		WPM:            fb.WordsPerMinute,
		ReadinessScore: fb.ReadinessScore,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
