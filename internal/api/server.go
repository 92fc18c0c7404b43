// Package api exposes the REST and websocket surface of the interview coach.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/auth"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/queue"
	"github.com/flowenci/interview-coach/internal/roleplay"
	"github.com/flowenci/interview-coach/internal/storage"
	"github.com/flowenci/interview-coach/internal/store"
)

// SessionEvaluator produces the holistic review of a finished roleplay
type SessionEvaluator interface {
	SessionFeedback(ctx context.Context, history []llm.Message, personaKey string) interviewer.SessionFeedback
	Personas() interviewer.Personas
}

// Deps are the collaborators the HTTP surface is built on
type Deps struct {
	Store     store.DataStore
	Tokens    *auth.Tokens
	Uploads   *storage.LocalStorage
	Queue     queue.Enqueuer
	Registry  *roleplay.Registry
	Roleplay  *roleplay.Handler
	Evaluator SessionEvaluator
	Checks    []observability.DependencyCheck
	Metrics   bool
	Logger    zerolog.Logger
}

// Server routes requests to handlers
type Server struct {
	Deps
	// baseCtx outlives individual requests; websocket conversations stop when it is cancelled
	baseCtx context.Context
	router  chi.Router
}

// NewServer builds the router. ctx bounds the lifetime of websocket conversations.
func NewServer(ctx context.Context, deps Deps) *Server {
	srv := &Server{Deps: deps, baseCtx: ctx}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(srv.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(deps.Checks...))
	if deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", srv.handleSignup)
		r.Post("/auth/login", srv.handleLogin)

		// The session UUID is the credential for the websocket
		r.Get("/roleplay/session/{sessionID}", srv.handleInterviewSocket)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(deps.Tokens, deps.Store))

			r.Get("/auth/me", srv.handleMe)
			r.Patch("/auth/me", srv.handleUpdateMe)
			r.Post("/auth/logout", srv.handleLogout)

			r.Get("/questions", srv.handleListQuestions)
			r.Get("/questions/categories", srv.handleQuestionCategories)
			r.Get("/questions/{questionID}", srv.handleGetQuestion)

			r.Post("/recordings/upload", srv.handleUpload)
			r.Get("/recordings/{recordingID}", srv.handleGetRecording)

			r.Post("/feedback/analyze", srv.handleAnalyze)
			r.Get("/feedback/compare/{questionID}", srv.handleCompare)
			r.Get("/feedback/{recordingID}", srv.handleGetFeedback)

			r.Get("/dashboard/stats", srv.handleDashboardStats)

			r.Post("/roleplay/start", srv.handleStartRoleplay)
			r.Post("/roleplay/session/{dbSessionID}/end", srv.handleEndRoleplay)
			r.Get("/roleplay/session/{dbSessionID}/feedback", srv.handleRoleplayFeedback)
			r.Get("/roleplay/sessions", srv.handleListRoleplaySessions)
		})
	})

	srv.router = r
	return srv
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// accessLog attaches a request-scoped logger and logs each completed request
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		logger := s.Logger.With().Str("correlation_id", reqID).Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		status := ww.Status()
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

func currentUser(r *http.Request) *store.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}
