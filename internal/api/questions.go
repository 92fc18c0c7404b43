package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flowenci/interview-coach/internal/store"
)

const (
	defaultQuestionLimit = 50
	maxQuestionLimit     = 100
)

type questionList struct {
	Total     int              `json:"total"`
	Questions []store.Question `json:"questions"`
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.QuestionFilter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Search:     q.Get("search"),
		Limit:      defaultQuestionLimit,
	}
	if v := q.Get("use_star"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "use_star must be a boolean")
			return
		}
		f.UseStar = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxQuestionLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must not be negative")
			return
		}
		f.Offset = n
	}

	questions, total, err := s.Store.ListQuestions(r.Context(), f)
	if err != nil {
		internalError(w, r, err, "Failed to list questions")
		return
	}
	writeJSON(w, http.StatusOK, questionList{Total: total, Questions: questions})
}

func (s *Server) handleQuestionCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Store.QuestionCategories(r.Context())
	if err != nil {
		internalError(w, r, err, "Failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.Store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		internalError(w, r, err, "Failed to load question")
		return
	}
	writeJSON(w, http.StatusOK, q)
}
