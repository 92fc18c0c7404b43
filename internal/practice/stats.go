package practice

import (
	"context"
	"fmt"

	"github.com/flowenci/interview-coach/internal/coaching"
	"github.com/flowenci/interview-coach/internal/store"
)

const (
	trendWindow    = 20
	readyThreshold = 75
)

// FillerPoint is one attempt on the filler trend
type FillerPoint struct {
	Attempt     int `json:"attempt"`
	FillerCount int `json:"filler_count"`
}

// ReadinessPoint is one attempt on the readiness trend
type ReadinessPoint struct {
	Attempt int     `json:"attempt"`
	Score   float64 `json:"score"`
}

// Skill is one bar of the skill breakdown
type Skill struct {
	Skill string  `json:"skill"`
	Value float64 `json:"value"`
}

// LastSession summarizes the latest analysed recording
type LastSession struct {
	Score        float64        `json:"score"`
	Change       string         `json:"change"`
	Strengths    []coaching.Tip `json:"strengths"`
	Improvements []string       `json:"improvements"`
}

// Stats is the dashboard payload
type Stats struct {
	TotalRecordings      int              `json:"total_recordings"`
	QuestionsPracticed   int              `json:"questions_practiced"`
	TotalPracticeMinutes float64          `json:"total_practice_minutes"`
	ReadinessScore       float64          `json:"readiness_score"`
	IsInterviewReady     bool             `json:"is_interview_ready"`
	FillerTrend          []FillerPoint    `json:"filler_trend"`
	ReadinessTrend       []ReadinessPoint `json:"readiness_trend"`
	NextFocus            string           `json:"next_focus"`
	SkillBreakdown       []Skill          `json:"skill_breakdown,omitempty"`
	LastSession          *LastSession     `json:"last_session,omitempty"`
	LatestRecordingID    string           `json:"latest_recording_id,omitempty"`
	AvgSpeakingSpeed     float64          `json:"avg_speaking_speed"`
	AvgFillerWords       float64          `json:"avg_filler_words"`
}

// DashboardStats loads a user's done recordings and builds the dashboard
func DashboardStats(ctx context.Context, ds store.DataStore, userID string) (*Stats, error) {
	recs, err := ds.ListDoneRecordings(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	fbs, err := ds.FeedbacksForRecordings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	stats := BuildStats(recs, fbs)
	return &stats, nil
}

// BuildStats derives the dashboard from done recordings ordered oldest first
func BuildStats(recs []store.Recording, fbs map[string]*store.Feedback) Stats {
	stats := Stats{
		FillerTrend:    []FillerPoint{},
		ReadinessTrend: []ReadinessPoint{},
	}
	if len(recs) == 0 {
		stats.NextFocus = "Start practicing to track your progress"
		return stats
	}

	var totalSeconds float64
	questions := map[string]struct{}{}
	var feedbacks []*store.Feedback
	for i, r := range recs {
		if r.DurationSeconds != nil {
			totalSeconds += *r.DurationSeconds
		}
		if r.QuestionID != nil {
			questions[*r.QuestionID] = struct{}{}
		}
		fb := fbs[r.ID]
		if fb == nil {
			continue
		}
		feedbacks = append(feedbacks, fb)
		stats.FillerTrend = append(stats.FillerTrend, FillerPoint{Attempt: i + 1, FillerCount: fb.FillerWordCount})
		stats.ReadinessTrend = append(stats.ReadinessTrend, ReadinessPoint{Attempt: i + 1, Score: fb.ReadinessScore})
	}

	stats.TotalRecordings = len(recs)
	stats.QuestionsPracticed = len(questions)
	stats.TotalPracticeMinutes = round1(totalSeconds / 60)
	stats.FillerTrend = lastN(stats.FillerTrend, trendWindow)
	stats.ReadinessTrend = lastN(stats.ReadinessTrend, trendWindow)
	stats.NextFocus = "Keep practicing!"

	latest := recs[len(recs)-1]
	stats.LatestRecordingID = latest.ID

	if len(feedbacks) == 0 {
		return stats
	}

	var readinessSum, wpmSum float64
	var fillerSum int
	for _, fb := range feedbacks {
		readinessSum += fb.ReadinessScore
		wpmSum += fb.WordsPerMinute
		fillerSum += fb.FillerWordCount
	}
	n := float64(len(feedbacks))
	mean := readinessSum / n
	stats.ReadinessScore = round1(mean)
	stats.IsInterviewReady = mean >= readyThreshold
	stats.AvgSpeakingSpeed = round1(wpmSum / n)
	stats.AvgFillerWords = round1(float64(fillerSum) / n)
	stats.NextFocus = nextFocus(feedbacks[len(feedbacks)-1])

	if latestFb := fbs[latest.ID]; latestFb != nil {
		stats.SkillBreakdown = skillBreakdown(latestFb)
		stats.LastSession = &LastSession{
			Score:        latestFb.ReadinessScore,
			Change:       readinessChange(mean, feedbacks),
			Strengths:    firstN(latestFb.CoachingTips, 3),
			Improvements: firstN(latestFb.ConfidenceFlags, 3),
		}
	}
	return stats
}

func nextFocus(fb *store.Feedback) string {
	switch {
	case fb.FillerWordCount > 10:
		return "Focus: Reduce filler words - use silent pauses instead"
	case fb.WordsPerMinute > 160:
		return "Focus: Slow down your pace to 120-150 WPM"
	case fb.WordsPerMinute > 0 && fb.WordsPerMinute < 100:
		return "Focus: Speak with more energy - aim for 120-150 WPM"
	case fb.ReadinessScore < 50:
		return "Focus: Structure your answers with STAR method"
	default:
		return "Great progress! Keep practicing to reach 75+ readiness"
	}
}

func skillBreakdown(fb *store.Feedback) []Skill {
	return []Skill{
		{Skill: "Communication", Value: fb.ConfidenceScore},
		{Skill: "Fluency", Value: float64(max(0, 100-fb.FillerWordCount*5))},
		{Skill: "Grammar Accuracy", Value: fb.ReadinessScore},
		{Skill: "Vocabulary Range", Value: min(100, float64(fb.TotalWordCount)/2)},
		{Skill: "Confidence Score", Value: fb.ConfidenceScore},
	}
}

// readinessChange compares the mean readiness with the first attempt
func readinessChange(mean float64, feedbacks []*store.Feedback) string {
	if len(feedbacks) < 2 {
		return "0"
	}
	return fmt.Sprintf("%+.1f", round1(mean-feedbacks[0].ReadinessScore))
}

func lastN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
