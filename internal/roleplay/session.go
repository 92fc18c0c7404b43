// Package roleplay runs turn-based mock interviews over a persistent connection.
package roleplay

import (
	"time"

	"github.com/flowenci/interview-coach/internal/llm"
)

// DefaultExperienceLevel is used when the candidate level is unknown
const DefaultExperienceLevel = "student"

// Session is one in-progress interview. It is mutated only by the connection that owns it.
type Session struct {
	ID              string
	UserID          string
	CompanyKey      string
	InterviewType   string
	Role            string
	ExperienceLevel string
	MaxTurns        int

	// CurrentTurn counts interviewer utterances only
	CurrentTurn int
	History     []llm.Message
	IsComplete  bool

	// DBSessionID links to the durable interview row
	DBSessionID string
	CreatedAt   time.Time

	attached bool
}

// AddAssistantMessage appends an interviewer utterance and advances the turn
func (s *Session) AddAssistantMessage(text string) {
	s.History = append(s.History, llm.Message{Role: llm.RoleAssistant, Content: text})
	s.CurrentTurn++
}

// AddUserMessage appends a candidate answer; the turn does not advance
func (s *Session) AddUserMessage(text string) {
	s.History = append(s.History, llm.Message{Role: llm.RoleUser, Content: text})
}

// IsOver reports whether the turn budget is spent
func (s *Session) IsOver() bool {
	return s.CurrentTurn >= s.MaxTurns
}

// Status is the durable terminal status for the session
func (s *Session) Status() string {
	if s.IsComplete {
		return "completed"
	}
	return "abandoned"
}

// Attached reports whether a connection ever took ownership of the session
func (s *Session) Attached() bool {
	return s.attached
}
