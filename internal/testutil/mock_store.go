package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/store"
)

// MockStore is a thread-safe in-memory implementation of store.DataStore for testing.
type MockStore struct {
	mu sync.Mutex

	Users      map[string]*store.User
	Questions  map[string]*store.Question
	Recordings map[string]*store.Recording
	Feedbacks  map[string]*store.Feedback // key: recording id
	Sessions   map[string]*store.InterviewSession

	CreateUserErr      error
	CreateRecordingErr error
	GetRecordingErr    error
	InsertFeedbackErr  error
	CompleteErr        error
	FinishSessionErr   error
	SaveFeedbackErr    error
	PingErr            error

	InsertFeedbackCalls int
	FinishSessionCalls  int
	SaveFeedbackCalls   int

	// StatusHistory records every SetRecordingStatus call as "id:status"
	StatusHistory []string

	clock time.Time
}

func NewMockStore() *MockStore {
	return &MockStore{
		Users:      make(map[string]*store.User),
		Questions:  make(map[string]*store.Question),
		Recordings: make(map[string]*store.Recording),
		Feedbacks:  make(map[string]*store.Feedback),
		Sessions:   make(map[string]*store.InterviewSession),
		clock:      time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

var _ store.DataStore = (*MockStore)(nil)

// now returns a strictly increasing timestamp so ordering by creation is deterministic
func (m *MockStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// AddQuestion seeds an active question
func (m *MockStore) AddQuestion(q store.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.IsActive = true
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	m.Questions[q.ID] = &q
}

// AddDoneRecording seeds an analysed recording with its feedback
func (m *MockStore) AddDoneRecording(r store.Recording, f store.Feedback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.AnalysisStatus = store.StatusDone
	r.TranscriptionStatus = store.StatusDone
	r.CreatedAt = m.now()
	f.RecordingID = r.ID
	f.CreatedAt = r.CreatedAt
	m.Recordings[r.ID] = &r
	m.Feedbacks[r.ID] = &f
}

func (m *MockStore) CreateUser(_ context.Context, u *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateUserErr != nil {
		return m.CreateUserErr
	}
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return store.ErrConflict
		}
	}
	if u.ExperienceLevel == "" {
		u.ExperienceLevel = "student"
	}
	u.IsActive = true
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.Users[u.ID] = &cp
	return nil
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockStore) UpdateUser(_ context.Context, id string, upd store.ProfileUpdate) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.TargetCompanies != nil {
		u.TargetCompanies = upd.TargetCompanies
	}
	if upd.InterviewTimeline != nil {
		u.InterviewTimeline = upd.InterviewTimeline
	}
	if upd.ExperienceLevel != nil {
		u.ExperienceLevel = *upd.ExperienceLevel
	}
	u.UpdatedAt = m.now()
	cp := *u
	return &cp, nil
}

func (m *MockStore) ListQuestions(_ context.Context, f store.QuestionFilter) ([]store.Question, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []store.Question{}
	for _, q := range m.Questions {
		if !q.IsActive {
			continue
		}
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		if f.UseStar != nil && q.UseStar != *f.UseStar {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, *q)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	total := len(matched)
	if f.Offset >= total {
		return []store.Question{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (m *MockStore) QuestionCategories(_ context.Context) ([]store.CategoryCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, q := range m.Questions {
		if q.IsActive {
			counts[q.Category]++
		}
	}
	cats := make([]store.CategoryCount, 0, len(counts))
	for c, n := range counts {
		cats = append(cats, store.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Category < cats[j].Category })
	return cats, nil
}

func (m *MockStore) GetQuestion(_ context.Context, id string) (*store.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.Questions[id]
	if !ok || !q.IsActive {
		return nil, store.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *MockStore) CreateRecording(_ context.Context, r *store.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateRecordingErr != nil {
		return m.CreateRecordingErr
	}
	attempt := 1
	for _, existing := range m.Recordings {
		if existing.UserID == r.UserID && equalPtr(existing.QuestionID, r.QuestionID) {
			attempt++
		}
	}
	r.AttemptNumber = attempt
	r.TranscriptionStatus = store.StatusPending
	r.AnalysisStatus = store.StatusPending
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.Recordings[r.ID] = &cp
	return nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MockStore) GetRecording(_ context.Context, id, userID string) (*store.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetRecordingErr != nil {
		return nil, m.GetRecordingErr
	}
	r, ok := m.Recordings[id]
	if !ok || (userID != "" && r.UserID != userID) {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockStore) ClaimRecordingForAnalysis(_ context.Context, id, userID string) (*store.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Recordings[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	if r.AnalysisStatus == store.StatusProcessing || r.AnalysisStatus == store.StatusDone {
		cp := *r
		return &cp, store.ErrConflict
	}
	r.AnalysisStatus = store.StatusProcessing
	cp := *r
	return &cp, nil
}

func (m *MockStore) SetRecordingStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Recordings[id]
	if !ok {
		return store.ErrNotFound
	}
	r.AnalysisStatus = status
	m.StatusHistory = append(m.StatusHistory, id+":"+status)
	return nil
}

func (m *MockStore) CompleteRecording(_ context.Context, id, transcript string, durationSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	r, ok := m.Recordings[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Transcript = &transcript
	r.DurationSeconds = &durationSeconds
	r.TranscriptionStatus = store.StatusDone
	r.AnalysisStatus = store.StatusDone
	return nil
}

func (m *MockStore) ListDoneRecordings(_ context.Context, userID, questionID string) ([]store.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := []store.Recording{}
	for _, r := range m.Recordings {
		if r.UserID != userID || r.AnalysisStatus != store.StatusDone {
			continue
		}
		if questionID != "" && (r.QuestionID == nil || *r.QuestionID != questionID) {
			continue
		}
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

func (m *MockStore) InsertFeedback(_ context.Context, f *store.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertFeedbackCalls++
	if m.InsertFeedbackErr != nil {
		return m.InsertFeedbackErr
	}
	if _, exists := m.Feedbacks[f.RecordingID]; exists {
		return store.ErrConflict
	}
	f.CreatedAt = m.now()
	cp := *f
	m.Feedbacks[f.RecordingID] = &cp
	return nil
}

func (m *MockStore) GetFeedbackByRecording(_ context.Context, recordingID string) (*store.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Feedbacks[recordingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockStore) FeedbacksForRecordings(_ context.Context, recordingIDs []string) (map[string]*store.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*store.Feedback, len(recordingIDs))
	for _, id := range recordingIDs {
		if f, ok := m.Feedbacks[id]; ok {
			cp := *f
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockStore) CreateInterviewSession(_ context.Context, s *store.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = store.SessionActive
	}
	s.StartedAt = m.now()
	cp := *s
	m.Sessions[s.ID] = &cp
	return nil
}

func (m *MockStore) GetInterviewSession(_ context.Context, id, userID string) (*store.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok || s.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockStore) FinishInterviewSession(_ context.Context, id string, fin store.SessionFinish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishSessionCalls++
	if m.FinishSessionErr != nil {
		return m.FinishSessionErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	s.ConversationHistory = fin.History
	s.TotalTurns = fin.TotalTurns
	s.Status = fin.Status
	s.DurationSeconds = fin.DurationSeconds
	if fin.Ended {
		now := m.now()
		s.EndedAt = &now
	}
	return nil
}

func (m *MockStore) SaveSessionFeedback(_ context.Context, id string, fb interviewer.SessionFeedback) (*store.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveFeedbackCalls++
	if m.SaveFeedbackErr != nil {
		return nil, m.SaveFeedbackErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	score := fb.OverallScore
	s.SessionFeedback = &fb
	s.OverallScore = &score
	s.Status = store.SessionCompleted
	if s.EndedAt == nil {
		now := m.now()
		s.EndedAt = &now
	}
	cp := *s
	return &cp, nil
}

func (m *MockStore) ListInterviewSessions(_ context.Context, userID string, limit int) ([]store.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := []store.InterviewSession{}
	for _, s := range m.Sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartedAt.After(sessions[j].StartedAt) })
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (m *MockStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

func (m *MockStore) Close() {}
