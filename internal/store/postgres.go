package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/flowenci/interview-coach/internal/interviewer"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Store is the pgx-backed DataStore
type Store struct {
	pool *pgxpool.Pool
}

var _ DataStore = (*Store)(nil)

// New connects to Postgres and verifies the connection
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate applies the idempotent schema
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Debug().Msg("Database schema applied")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// --- users ---

const userColumns = `id, name, email, hashed_password, target_companies, interview_timeline,
	experience_level, is_active, is_paid, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.TargetCompanies, &u.InterviewTimeline,
		&u.ExperienceLevel, &u.IsActive, &u.IsPaid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateUser inserts u and fills its timestamps. A taken email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ExperienceLevel == "" {
		u.ExperienceLevel = "student"
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, hashed_password, target_companies, interview_timeline, experience_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_active, is_paid, created_at, updated_at`,
		u.ID, u.Name, u.Email, u.HashedPassword, u.TargetCompanies, u.InterviewTimeline, u.ExperienceLevel,
	).Scan(&u.IsActive, &u.IsPaid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateUser applies the set fields of upd and returns the refreshed row
func (s *Store) UpdateUser(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			target_companies = COALESCE($3, target_companies),
			interview_timeline = COALESCE($4, interview_timeline),
			experience_level = COALESCE($5, experience_level),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Name, upd.TargetCompanies, upd.InterviewTimeline, upd.ExperienceLevel,
	))
}

// --- questions ---

const questionColumns = `id, text, category, difficulty, use_star, guidance,
	target_duration_min, target_duration_max, tags, is_active, created_at`

func scanQuestion(row pgx.Row) (*Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.Text, &q.Category, &q.Difficulty, &q.UseStar, &q.Guidance,
		&q.TargetDurationMin, &q.TargetDurationMax, &q.Tags, &q.IsActive, &q.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return &q, nil
}

// ListQuestions returns one page of active questions and the total matching count
func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) ([]Question, int, error) {
	where := []string{"is_active"}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Difficulty != "" {
		add("difficulty = $%d", f.Difficulty)
	}
	if f.UseStar != nil {
		add("use_star = $%d", *f.UseStar)
	}
	if f.Search != "" {
		add("text ILIKE $%d", "%"+f.Search+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM questions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		questionColumns, cond, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}

func (s *Store) QuestionCategories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, count(*) FROM questions
		WHERE is_active GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	cats := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetQuestion returns an active question
func (s *Store) GetQuestion(ctx context.Context, id string) (*Question, error) {
	return scanQuestion(s.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1 AND is_active`, id))
}

// --- recordings ---

const recordingColumns = `id, user_id, question_id, file_key, attempt_number, duration_seconds,
	transcript, transcription_status, analysis_status, created_at, updated_at`

func scanRecording(row pgx.Row) (*Recording, error) {
	var r Recording
	err := row.Scan(&r.ID, &r.UserID, &r.QuestionID, &r.FileKey, &r.AttemptNumber, &r.DurationSeconds,
		&r.Transcript, &r.TranscriptionStatus, &r.AnalysisStatus, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// CreateRecording inserts r with the next attempt number for its user and question
func (s *Store) CreateRecording(ctx context.Context, r *Recording) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO recordings (id, user_id, question_id, file_key, attempt_number)
		VALUES ($1, $2, $3, $4, (
			SELECT count(*) + 1 FROM recordings
			WHERE user_id = $2 AND question_id IS NOT DISTINCT FROM $3
		))
		RETURNING attempt_number, transcription_status, analysis_status, created_at, updated_at`,
		r.ID, r.UserID, r.QuestionID, r.FileKey,
	).Scan(&r.AttemptNumber, &r.TranscriptionStatus, &r.AnalysisStatus, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

func (s *Store) GetRecording(ctx context.Context, id, userID string) (*Recording, error) {
	if userID == "" {
		return scanRecording(s.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
	}
	return scanRecording(s.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = $1 AND user_id = $2`, id, userID))
}

func (s *Store) ClaimRecordingForAnalysis(ctx context.Context, id, userID string) (*Recording, error) {
	rec, err := scanRecording(s.pool.QueryRow(ctx, `
		UPDATE recordings SET analysis_status = 'processing', updated_at = now()
		WHERE id = $1 AND user_id = $2 AND analysis_status IN ('pending', 'failed')
		RETURNING `+recordingColumns, id, userID))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("claim recording: %w", err)
	}

	current, err := s.GetRecording(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return current, ErrConflict
}

func (s *Store) SetRecordingStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recordings SET analysis_status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update recording status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteRecording stores the transcript and marks both statuses done
func (s *Store) CompleteRecording(ctx context.Context, id, transcript string, durationSeconds float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recordings SET transcript = $2, duration_seconds = $3,
			transcription_status = 'done', analysis_status = 'done', updated_at = now()
		WHERE id = $1`, id, transcript, durationSeconds)
	if err != nil {
		return fmt.Errorf("complete recording: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListDoneRecordings(ctx context.Context, userID, questionID string) ([]Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE user_id = $1 AND analysis_status = 'done'`
	args := []any{userID}
	if questionID != "" {
		query += ` AND question_id = $2`
		args = append(args, questionID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	recs := []Recording{}
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// --- feedbacks ---

const feedbackColumns = `id, recording_id, filler_word_count, filler_words_detail, words_per_minute,
	pace_category, total_word_count, pause_count, star_score, star_breakdown, pronunciation_issues,
	confidence_score, confidence_flags, readiness_score, coaching_tips, created_at`

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var (
		f                                          Feedback
		detail, breakdown, issues, flags, tipsJSON []byte
	)
	err := row.Scan(&f.ID, &f.RecordingID, &f.FillerWordCount, &detail, &f.WordsPerMinute,
		&f.PaceCategory, &f.TotalWordCount, &f.PauseCount, &f.StarScore, &breakdown, &issues,
		&f.ConfidenceScore, &flags, &f.ReadinessScore, &tipsJSON, &f.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	for _, d := range []struct {
		raw []byte
		dst any
	}{
		{detail, &f.FillerWordsDetail},
		{breakdown, &f.StarBreakdown},
		{issues, &f.PronunciationIssues},
		{flags, &f.ConfidenceFlags},
		{tipsJSON, &f.CoachingTips},
	} {
		if err := decodeJSON(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("decode feedback %s: %w", f.ID, err)
		}
	}
	return &f, nil
}

// InsertFeedback stores f. A second feedback for the same recording yields ErrConflict.
func (s *Store) InsertFeedback(ctx context.Context, f *Feedback) error {
	detail, err := encodeJSON(f.FillerWordsDetail)
	if err != nil {
		return err
	}
	breakdown, err := encodeJSON(f.StarBreakdown)
	if err != nil {
		return err
	}
	issues, err := encodeJSON(f.PronunciationIssues)
	if err != nil {
		return err
	}
	flags, err := encodeJSON(f.ConfidenceFlags)
	if err != nil {
		return err
	}
	tips, err := encodeJSON(f.CoachingTips)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO feedbacks (id, recording_id, filler_word_count, filler_words_detail, words_per_minute,
			pace_category, total_word_count, pause_count, star_score, star_breakdown, pronunciation_issues,
			confidence_score, confidence_flags, readiness_score, coaching_tips)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`,
		f.ID, f.RecordingID, f.FillerWordCount, detail, f.WordsPerMinute,
		f.PaceCategory, f.TotalWordCount, f.PauseCount, f.StarScore, breakdown, issues,
		f.ConfidenceScore, flags, f.ReadinessScore, tips,
	).Scan(&f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *Store) GetFeedbackByRecording(ctx context.Context, recordingID string) (*Feedback, error) {
	return scanFeedback(s.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE recording_id = $1`, recordingID))
}

// FeedbacksForRecordings returns feedback keyed by recording id; recordings without one are absent
func (s *Store) FeedbacksForRecordings(ctx context.Context, recordingIDs []string) (map[string]*Feedback, error) {
	out := make(map[string]*Feedback, len(recordingIDs))
	if len(recordingIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE recording_id = ANY($1)`, recordingIDs)
	if err != nil {
		return nil, fmt.Errorf("query feedbacks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out[f.RecordingID] = f
	}
	return out, rows.Err()
}

// --- interview sessions ---

const sessionColumns = `id, user_id, company, interview_type, role, status, conversation_history,
	total_turns, duration_seconds, overall_score, session_feedback, started_at, ended_at`

func scanSession(row pgx.Row) (*InterviewSession, error) {
	var (
		sess              InterviewSession
		history, feedback []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Company, &sess.InterviewType, &sess.Role, &sess.Status,
		&history, &sess.TotalTurns, &sess.DurationSeconds, &sess.OverallScore, &feedback,
		&sess.StartedAt, &sess.EndedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := decodeJSON(history, &sess.ConversationHistory); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", sess.ID, err)
	}
	if len(feedback) > 0 && string(feedback) != "null" {
		var fb interviewer.SessionFeedback
		if err := json.Unmarshal(feedback, &fb); err != nil {
			return nil, fmt.Errorf("decode session feedback %s: %w", sess.ID, err)
		}
		sess.SessionFeedback = &fb
	}
	return &sess, nil
}

func (s *Store) CreateInterviewSession(ctx context.Context, sess *InterviewSession) error {
	if sess.Status == "" {
		sess.Status = SessionActive
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO interview_sessions (id, user_id, company, interview_type, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING started_at`,
		sess.ID, sess.UserID, sess.Company, sess.InterviewType, sess.Role, sess.Status,
	).Scan(&sess.StartedAt)
	if err != nil {
		return fmt.Errorf("insert interview session: %w", err)
	}
	return nil
}

func (s *Store) GetInterviewSession(ctx context.Context, id, userID string) (*InterviewSession, error) {
	return scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1 AND user_id = $2`, id, userID))
}

// FinishInterviewSession writes the transcript and terminal status of a roleplay
func (s *Store) FinishInterviewSession(ctx context.Context, id string, fin SessionFinish) error {
	history, err := encodeJSON(fin.History)
	if err != nil {
		return err
	}
	var endedAt *time.Time
	if fin.Ended {
		now := time.Now().UTC()
		endedAt = &now
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE interview_sessions SET conversation_history = $2, total_turns = $3, status = $4,
			duration_seconds = $5, ended_at = COALESCE($6, ended_at)
		WHERE id = $1`,
		id, history, fin.TotalTurns, fin.Status, fin.DurationSeconds, endedAt)
	if err != nil {
		return fmt.Errorf("finish interview session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSessionFeedback stores the evaluation and completes the session
func (s *Store) SaveSessionFeedback(ctx context.Context, id string, fb interviewer.SessionFeedback) (*InterviewSession, error) {
	raw, err := encodeJSON(fb)
	if err != nil {
		return nil, err
	}
	return scanSession(s.pool.QueryRow(ctx, `
		UPDATE interview_sessions SET session_feedback = $2, overall_score = $3,
			status = 'completed', ended_at = COALESCE(ended_at, now())
		WHERE id = $1
		RETURNING `+sessionColumns, id, raw, fb.OverallScore))
}

// ListInterviewSessions returns the newest sessions first
func (s *Store) ListInterviewSessions(ctx context.Context, userID string, limit int) ([]InterviewSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM interview_sessions
		WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query interview sessions: %w", err)
	}
	defer rows.Close()

	sessions := []InterviewSession{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}
