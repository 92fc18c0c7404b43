package store

import (
	"errors"
	"time"

	"github.com/flowenci/interview-coach/internal/analysis"
	"github.com/flowenci/interview-coach/internal/coaching"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/llm"
)

var (
	// ErrNotFound is returned when no row matches
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a unique violation or a rejected state transition
	ErrConflict = errors.New("conflict")
)

// Recording analysis statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Interview session statuses
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// User is an account
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	HashedPassword    string    `json:"-"`
	TargetCompanies   *string   `json:"target_companies"`
	InterviewTimeline *string   `json:"interview_timeline"`
	ExperienceLevel   string    `json:"experience_level"`
	IsActive          bool      `json:"-"`
	IsPaid            bool      `json:"is_paid"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"-"`
}

// ProfileUpdate changes only the non-nil fields
type ProfileUpdate struct {
	Name              *string `json:"name"`
	TargetCompanies   *string `json:"target_companies"`
	InterviewTimeline *string `json:"interview_timeline"`
	ExperienceLevel   *string `json:"experience_level"`
}

// Question is a practice prompt
type Question struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Category          string    `json:"category"`
	Difficulty        string    `json:"difficulty"`
	UseStar           bool      `json:"use_star"`
	Guidance          *string   `json:"guidance"`
	TargetDurationMin *int      `json:"target_duration_min"`
	TargetDurationMax *int      `json:"target_duration_max"`
	Tags              []string  `json:"tags"`
	IsActive          bool      `json:"-"`
	CreatedAt         time.Time `json:"-"`
}

// QuestionFilter narrows ListQuestions. Zero values mean no filter.
type QuestionFilter struct {
	Category   string
	Difficulty string
	UseStar    *bool
	Search     string
	Limit      int
	Offset     int
}

// CategoryCount is the number of active questions in a category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Recording is one uploaded answer
type Recording struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"-"`
	QuestionID          *string   `json:"question_id"`
	FileKey             string    `json:"-"`
	AttemptNumber       int       `json:"attempt_number"`
	DurationSeconds     *float64  `json:"duration_seconds"`
	Transcript          *string   `json:"-"`
	TranscriptionStatus string    `json:"-"`
	AnalysisStatus      string    `json:"analysis_status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"-"`
}

// Feedback is the stored analysis of a recording
type Feedback struct {
	ID                  string             `json:"id"`
	RecordingID         string             `json:"-"`
	FillerWordCount     int                `json:"filler_word_count"`
	FillerWordsDetail   map[string]int     `json:"filler_words_detail"`
	WordsPerMinute      float64            `json:"words_per_minute"`
	PaceCategory        string             `json:"pace_category"`
	TotalWordCount      int                `json:"total_word_count"`
	PauseCount          int                `json:"pause_count"`
	StarScore           *float64           `json:"star_score"`
	StarBreakdown       map[string]float64 `json:"star_breakdown"`
	PronunciationIssues []string           `json:"pronunciation_issues"`
	ConfidenceScore     float64            `json:"confidence_score"`
	ConfidenceFlags     []string           `json:"confidence_flags"`
	ReadinessScore      float64            `json:"readiness_score"`
	CoachingTips        []coaching.Tip     `json:"coaching_tips"`
	CreatedAt           time.Time          `json:"created_at"`
}

// NewFeedback maps a pipeline result onto a feedback row
func NewFeedback(id, recordingID string, r *analysis.FeedbackRecord) *Feedback {
	return &Feedback{
		ID:                  id,
		RecordingID:         recordingID,
		FillerWordCount:     r.FillerWordCount,
		FillerWordsDetail:   r.FillerWordsDetail,
		WordsPerMinute:      r.WordsPerMinute,
		PaceCategory:        r.PaceCategory,
		TotalWordCount:      r.TotalWordCount,
		PauseCount:          r.PauseCount,
		StarScore:           r.StarScore,
		StarBreakdown:       r.StarBreakdown,
		PronunciationIssues: r.PronunciationIssues,
		ConfidenceScore:     r.ConfidenceScore,
		ConfidenceFlags:     r.ConfidenceFlags,
		ReadinessScore:      r.ReadinessScore,
		CoachingTips:        r.CoachingTips,
	}
}

// InterviewSession is the durable record of a roleplay interview
type InterviewSession struct {
	ID                  string                       `json:"id"`
	UserID              string                       `json:"-"`
	Company             string                       `json:"company"`
	InterviewType       string                       `json:"interview_type"`
	Role                string                       `json:"role"`
	Status              string                       `json:"status"`
	ConversationHistory []llm.Message                `json:"-"`
	TotalTurns          int                          `json:"total_turns"`
	DurationSeconds     float64                      `json:"duration_seconds"`
	OverallScore        *float64                     `json:"overall_score"`
	SessionFeedback     *interviewer.SessionFeedback `json:"-"`
	StartedAt           time.Time                    `json:"started_at"`
	EndedAt             *time.Time                   `json:"ended_at,omitempty"`
}

// SessionFinish is the terminal state handed over when a connection closes
type SessionFinish struct {
	History         []llm.Message
	TotalTurns      int
	Status          string
	DurationSeconds float64
	// Ended stamps ended_at
	Ended bool
}
