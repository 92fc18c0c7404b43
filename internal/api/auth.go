package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/flowenci/interview-coach/internal/auth"
	"github.com/flowenci/interview-coach/internal/roleplay"
	"github.com/flowenci/interview-coach/internal/store"
)

type signupRequest struct {
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	TargetCompanies   *string `json:"target_companies"`
	InterviewTimeline *string `json:"interview_timeline"`
	ExperienceLevel   string  `json:"experience_level"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *store.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, err, "Failed to hash password")
		return
	}
	if req.ExperienceLevel == "" {
		req.ExperienceLevel = roleplay.DefaultExperienceLevel
	}

	user := &store.User{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		HashedPassword:    hash,
		TargetCompanies:   req.TargetCompanies,
		InterviewTimeline: req.InterviewTimeline,
		ExperienceLevel:   req.ExperienceLevel,
	}
	if err := s.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		internalError(w, r, err, "Failed to create user")
		return
	}

	s.writeToken(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.Store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, err, "Failed to load user")
		return
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "Account disabled")
		return
	}

	s.writeToken(w, r, http.StatusOK, user)
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, status int, user *store.User) {
	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		internalError(w, r, err, "Failed to issue token")
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd store.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	user, err := s.Store.UpdateUser(r.Context(), currentUser(r).ID, upd)
	if err != nil {
		internalError(w, r, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Tokens are stateless; the client discards its copy
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
