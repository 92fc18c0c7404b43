package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/practice"
	"github.com/flowenci/interview-coach/internal/queue"
	"github.com/flowenci/interview-coach/internal/store"
)

const releaseTimeout = 5 * time.Second

type analyzeResponse struct {
	RecordingID string `json:"recording_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	recordingID := r.URL.Query().Get("recording_id")
	if recordingID == "" {
		writeError(w, http.StatusBadRequest, "recording_id is required")
		return
	}
	user := currentUser(r)

	rec, err := s.Store.ClaimRecordingForAnalysis(r.Context(), recordingID, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	case errors.Is(err, store.ErrConflict):
		if rec != nil && rec.AnalysisStatus == store.StatusDone {
			writeError(w, http.StatusConflict, "Analysis already completed")
			return
		}
		writeError(w, http.StatusConflict, "Analysis already in progress")
		return
	case err != nil:
		internalError(w, r, err, "Failed to claim recording")
		return
	}

	job := queue.Job{
		RecordingID:   rec.ID,
		UserID:        user.ID,
		CorrelationID: middleware.GetReqID(r.Context()),
	}
	if err := s.Queue.Enqueue(r.Context(), job); err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			writeError(w, http.StatusConflict, "Analysis already in progress")
			return
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("recording_id", rec.ID).Msg("Failed to enqueue analysis")
		s.releaseClaim(r.Context(), rec.ID)
		writeError(w, http.StatusServiceUnavailable, "Analysis queue is busy, try again shortly")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		RecordingID: rec.ID,
		Status:      store.StatusProcessing,
		Message:     "Analysis started. Poll GET /feedback/{recording_id} for results.",
	})
}

// releaseClaim lets the user retry a recording whose job was never queued
func (s *Server) releaseClaim(ctx context.Context, recordingID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.Store.SetRecordingStatus(ctx, recordingID, store.StatusFailed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", recordingID).Msg("Failed to release analysis claim")
	}
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	view, err := practice.LoadFeedback(r.Context(), s.Store, currentUser(r).ID, chi.URLParam(r, "recordingID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		internalError(w, r, err, "Failed to load feedback")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	c, err := practice.CompareAttempts(r.Context(), s.Store, currentUser(r).ID, chi.URLParam(r, "questionID"))
	switch {
	case errors.Is(err, practice.ErrNotEnoughAttempts):
		writeError(w, http.StatusBadRequest, "Need at least 2 completed attempts to compare")
	case errors.Is(err, practice.ErrFeedbackMissing):
		writeError(w, http.StatusNotFound, "Feedback not found for one or both attempts")
	case err != nil:
		internalError(w, r, err, "Failed to compare attempts")
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := practice.DashboardStats(r.Context(), s.Store, currentUser(r).ID)
	if err != nil {
		internalError(w, r, err, "Failed to build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
