package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/flowenci/interview-coach/internal/analysis"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/llm"
)

func skipWithoutDB(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return url
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	url := skipWithoutDB(t)
	ctx := context.Background()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func createTestUser(t *testing.T, s *Store) *User {
	t.Helper()
	u := &User{
		ID:             uuid.NewString(),
		Name:           "Asha",
		Email:          "asha-" + uuid.NewString() + "@example.com",
		HashedPassword: "hash",
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestIntegration_UserLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	if u.ExperienceLevel != "student" || !u.IsActive {
		t.Errorf("Expected defaults, got level=%q active=%v", u.ExperienceLevel, u.IsActive)
	}

	dup := &User{ID: uuid.NewString(), Name: "Other", Email: u.Email, HashedPassword: "x"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate email, got %v", err)
	}

	timeline := "3 months"
	updated, err := s.UpdateUser(ctx, u.ID, ProfileUpdate{InterviewTimeline: &timeline})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Name != "Asha" || updated.InterviewTimeline == nil || *updated.InterviewTimeline != timeline {
		t.Errorf("Expected partial update, got %+v", updated)
	}

	if _, err := s.GetUserByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_RecordingAnalysisFlow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	first := &Recording{ID: uuid.NewString(), UserID: u.ID, FileKey: "a.webm"}
	second := &Recording{ID: uuid.NewString(), UserID: u.ID, FileKey: "b.webm"}
	for _, r := range []*Recording{first, second} {
		if err := s.CreateRecording(ctx, r); err != nil {
			t.Fatalf("create recording: %v", err)
		}
	}
	if first.AttemptNumber != 1 || second.AttemptNumber != 2 {
		t.Errorf("Expected attempts 1 and 2, got %d and %d", first.AttemptNumber, second.AttemptNumber)
	}

	if _, err := s.ClaimRecordingForAnalysis(ctx, first.ID, u.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	rec, err := s.ClaimRecordingForAnalysis(ctx, first.ID, u.ID)
	if !errors.Is(err, ErrConflict) || rec.AnalysisStatus != StatusProcessing {
		t.Errorf("Expected conflict while processing, got %v / %+v", err, rec)
	}

	fb := NewFeedback(uuid.NewString(), first.ID, &analysis.FeedbackRecord{
		FillerWordCount:   3,
		FillerWordsDetail: map[string]int{"um": 3},
		WordsPerMinute:    140,
		ConfidenceFlags:   []string{},
		ReadinessScore:    72,
	})
	if err := s.InsertFeedback(ctx, fb); err != nil {
		t.Fatalf("insert feedback: %v", err)
	}
	if err := s.CompleteRecording(ctx, first.ID, "um hello", 42.5); err != nil {
		t.Fatalf("complete: %v", err)
	}

	done, err := s.ListDoneRecordings(ctx, u.ID, "")
	if err != nil || len(done) != 1 || done[0].ID != first.ID {
		t.Fatalf("Expected one done recording, got %v / %+v", err, done)
	}

	got, err := s.GetFeedbackByRecording(ctx, first.ID)
	if err != nil {
		t.Fatalf("get feedback: %v", err)
	}
	if got.FillerWordsDetail["um"] != 3 || got.ReadinessScore != 72 {
		t.Errorf("Expected round-tripped feedback, got %+v", got)
	}
}

func TestIntegration_InterviewSession(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	sess := &InterviewSession{ID: uuid.NewString(), UserID: u.ID, Company: "google", InterviewType: "behavioral"}
	if err := s.CreateInterviewSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	err := s.FinishInterviewSession(ctx, sess.ID, SessionFinish{
		History:         []llm.Message{{Role: llm.RoleAssistant, Content: "Tell me about yourself."}},
		TotalTurns:      1,
		Status:          SessionAbandoned,
		DurationSeconds: 30,
	})
	if err != nil {
		t.Fatalf("finish session: %v", err)
	}

	saved, err := s.SaveSessionFeedback(ctx, sess.ID, interviewer.SessionFeedback{OverallScore: 70, Summary: "Solid"})
	if err != nil {
		t.Fatalf("save feedback: %v", err)
	}
	if saved.Status != SessionCompleted || saved.EndedAt == nil || saved.SessionFeedback == nil {
		t.Errorf("Expected completed session with feedback, got %+v", saved)
	}
	if len(saved.ConversationHistory) != 1 {
		t.Errorf("Expected history to persist, got %d messages", len(saved.ConversationHistory))
	}
}
