package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/roleplay"
	"github.com/flowenci/interview-coach/internal/store"
)

const (
	defaultMaxTurns = 8
	minMaxTurns     = 3
	maxMaxTurns     = 15
	sessionListSize = 20
	defaultRole     = "Software Engineer"
)

type startRoleplayRequest struct {
	CompanyKey    string `json:"company_key"`
	InterviewType string `json:"interview_type"`
	Role          string `json:"role"`
	MaxTurns      *int   `json:"max_turns"`
}

type startRoleplayResponse struct {
	SessionID   string `json:"session_id"`
	DBSessionID string `json:"db_session_id"`
	Message     string `json:"message"`
}

type sessionFeedbackResponse struct {
	DBSessionID     string                    `json:"db_session_id"`
	OverallScore    float64                   `json:"overall_score"`
	Summary         string                    `json:"summary"`
	TopWins         []interviewer.Win         `json:"top_wins"`
	TopImprovements []interviewer.Improvement `json:"top_improvements"`
	DeliveryNotes   string                    `json:"delivery_notes"`
	InterviewReady  bool                      `json:"interview_ready"`
	TotalTurns      int                       `json:"total_turns"`
	DurationSeconds float64                   `json:"duration_seconds"`
	CreatedAt       time.Time                 `json:"created_at"`
}

func (req *startRoleplayRequest) applyDefaults() {
	req.CompanyKey = strings.ToLower(strings.TrimSpace(req.CompanyKey))
	if req.CompanyKey == "" {
		req.CompanyKey = interviewer.DefaultPersona
	}
	if req.InterviewType == "" {
		req.InterviewType = interviewer.TypeBehavioral
	}
	if strings.TrimSpace(req.Role) == "" {
		req.Role = defaultRole
	}
	if req.MaxTurns == nil {
		n := defaultMaxTurns
		req.MaxTurns = &n
	}
}

func (s *Server) handleStartRoleplay(w http.ResponseWriter, r *http.Request) {
	var req startRoleplayRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	req.applyDefaults()

	personas := s.Evaluator.Personas()
	if !personas.Has(req.CompanyKey) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid company_key. Choose from: %s", strings.Join(personas.Keys(), ", ")))
		return
	}
	if !interviewer.IsInterviewType(req.InterviewType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid interview_type. Choose from: %s", strings.Join(interviewer.InterviewTypes, ", ")))
		return
	}
	if *req.MaxTurns < minMaxTurns || *req.MaxTurns > maxMaxTurns {
		writeError(w, http.StatusBadRequest, "max_turns must be between 3 and 15")
		return
	}

	user := currentUser(r)
	row := &store.InterviewSession{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Company:       req.CompanyKey,
		InterviewType: req.InterviewType,
		Role:          req.Role,
		Status:        store.SessionActive,
	}
	if err := s.Store.CreateInterviewSession(r.Context(), row); err != nil {
		internalError(w, r, err, "Failed to create interview session")
		return
	}

	sess := s.Registry.Create(roleplay.CreateParams{
		UserID:          user.ID,
		CompanyKey:      req.CompanyKey,
		InterviewType:   req.InterviewType,
		Role:            req.Role,
		ExperienceLevel: user.ExperienceLevel,
		MaxTurns:        *req.MaxTurns,
		DBSessionID:     row.ID,
	})

	zerolog.Ctx(r.Context()).Info().
		Str("session_id", sess.ID).
		Str("db_session_id", row.ID).
		Str("company", req.CompanyKey).
		Int("max_turns", sess.MaxTurns).
		Msg("Roleplay session started")

	writeJSON(w, http.StatusOK, startRoleplayResponse{
		SessionID:   sess.ID,
		DBSessionID: row.ID,
		Message:     "Session started. Connect to the WebSocket to begin your interview.",
	})
}

func (s *Server) handleInterviewSocket(w http.ResponseWriter, r *http.Request) {
	if s.baseCtx.Err() != nil || s.Roleplay.Closing() {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	conn, err := roleplay.Upgrade(w, r)
	if err != nil {
		// the upgrader has already written the HTTP error
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	s.Roleplay.Serve(s.baseCtx, conn, chi.URLParam(r, "sessionID"))
}

func (s *Server) handleEndRoleplay(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadInterviewSession(w, r)
	if !ok {
		return
	}

	if row.Status == store.SessionActive || row.SessionFeedback == nil {
		fb := s.Evaluator.SessionFeedback(r.Context(), row.ConversationHistory, row.Company)
		updated, err := s.Store.SaveSessionFeedback(r.Context(), row.ID, fb)
		if err != nil {
			internalError(w, r, err, "Failed to store session feedback")
			return
		}
		row = updated
	}
	writeJSON(w, http.StatusOK, buildSessionFeedback(row))
}

func (s *Server) handleRoleplayFeedback(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadInterviewSession(w, r)
	if !ok {
		return
	}
	if row.SessionFeedback == nil {
		writeError(w, http.StatusNotFound, "Feedback not yet generated.")
		return
	}
	writeJSON(w, http.StatusOK, buildSessionFeedback(row))
}

func (s *Server) handleListRoleplaySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Store.ListInterviewSessions(r.Context(), currentUser(r).ID, sessionListSize)
	if err != nil {
		internalError(w, r, err, "Failed to list interview sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) loadInterviewSession(w http.ResponseWriter, r *http.Request) (*store.InterviewSession, bool) {
	row, err := s.Store.GetInterviewSession(r.Context(), chi.URLParam(r, "dbSessionID"), currentUser(r).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		internalError(w, r, err, "Failed to load interview session")
		return nil, false
	}
	return row, true
}

func buildSessionFeedback(row *store.InterviewSession) sessionFeedbackResponse {
	resp := sessionFeedbackResponse{
		DBSessionID:     row.ID,
		TopWins:         []interviewer.Win{},
		TopImprovements: []interviewer.Improvement{},
		TotalTurns:      row.TotalTurns,
		DurationSeconds: row.DurationSeconds,
		CreatedAt:       row.StartedAt,
	}
	if row.OverallScore != nil {
		resp.OverallScore = *row.OverallScore
	}
	if fb := row.SessionFeedback; fb != nil {
		resp.Summary = fb.Summary
		resp.DeliveryNotes = fb.DeliveryNotes
		resp.InterviewReady = fb.InterviewReady
		if fb.TopWins != nil {
			resp.TopWins = fb.TopWins
		}
		if fb.TopImprovements != nil {
			resp.TopImprovements = fb.TopImprovements
		}
	}
	return resp
}
