package store

import (
	"context"

	"github.com/flowenci/interview-coach/internal/interviewer"
)

// DataStore is the interface consumed by auth, the analysis runner, roleplay, and the API.
// The concrete implementation is *Store (pgx-backed).
type DataStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, upd ProfileUpdate) (*User, error)

	ListQuestions(ctx context.Context, f QuestionFilter) ([]Question, int, error)
	QuestionCategories(ctx context.Context) ([]CategoryCount, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)

	CreateRecording(ctx context.Context, r *Recording) error
	// GetRecording scopes to userID unless it is empty
	GetRecording(ctx context.Context, id, userID string) (*Recording, error)
	// ClaimRecordingForAnalysis moves a pending or failed recording to processing.
	// A processing or done recording yields ErrConflict along with its current row.
	ClaimRecordingForAnalysis(ctx context.Context, id, userID string) (*Recording, error)
	SetRecordingStatus(ctx context.Context, id, status string) error
	CompleteRecording(ctx context.Context, id, transcript string, durationSeconds float64) error
	// ListDoneRecordings returns done recordings oldest first, optionally for one question
	ListDoneRecordings(ctx context.Context, userID, questionID string) ([]Recording, error)

	InsertFeedback(ctx context.Context, f *Feedback) error
	GetFeedbackByRecording(ctx context.Context, recordingID string) (*Feedback, error)
	FeedbacksForRecordings(ctx context.Context, recordingIDs []string) (map[string]*Feedback, error)

	CreateInterviewSession(ctx context.Context, s *InterviewSession) error
	GetInterviewSession(ctx context.Context, id, userID string) (*InterviewSession, error)
	FinishInterviewSession(ctx context.Context, id string, fin SessionFinish) error
	SaveSessionFeedback(ctx context.Context, id string, fb interviewer.SessionFeedback) (*InterviewSession, error)
	ListInterviewSessions(ctx context.Context, userID string, limit int) ([]InterviewSession, error)

	Ping(ctx context.Context) error
	Close()
}
