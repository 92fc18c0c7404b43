package api

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flowenci/interview-coach/internal/audio"
	"github.com/flowenci/interview-coach/internal/storage"
	"github.com/flowenci/interview-coach/internal/store"
)

// multipartOverhead is allowed on top of the file cap for the form envelope
const multipartOverhead = 1 << 20

type uploadResponse struct {
	RecordingID string  `json:"recording_id"`
	FileKey     string  `json:"file_key"`
	SizeKB      float64 `json:"size_kb"`
	Message     string  `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	maxBytes := s.Uploads.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !audio.AllowedContentType(ct) {
		writeError(w, http.StatusBadRequest, "Unsupported audio format: "+ct)
		return
	}

	var questionID *string
	if qid := strings.TrimSpace(r.FormValue("question_id")); qid != "" {
		if _, err := s.Store.GetQuestion(r.Context(), qid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Question not found")
				return
			}
			internalError(w, r, err, "Failed to load question")
			return
		}
		questionID = &qid
	}

	fileKey := storage.FileKey(user.ID, audio.StoredExtension(header.Filename))
	size, err := s.Uploads.Save(fileKey, file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.Is(err, storage.ErrTooLarge) || errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		internalError(w, r, err, "Failed to store upload")
		return
	}

	rec := &store.Recording{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		QuestionID: questionID,
		FileKey:    fileKey,
	}
	if err := s.Store.CreateRecording(r.Context(), rec); err != nil {
		s.Uploads.Delete(fileKey)
		internalError(w, r, err, "Failed to save recording")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		RecordingID: rec.ID,
		FileKey:     fileKey,
		SizeKB:      math.Round(float64(size)/1024*10) / 10,
		Message:     "Upload successful. Call /feedback/analyze to start AI analysis.",
	})
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.GetRecording(r.Context(), chi.URLParam(r, "recordingID"), currentUser(r).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		internalError(w, r, err, "Failed to load recording")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
