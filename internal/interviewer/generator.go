package interviewer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
)

const (
	maxTopItems          = 3
	fallbackOverallScore = 60
	fallbackSummary      = "Session completed. Detailed analysis unavailable."
	turnMaxTokens        = 300
	turnTemperature      = 0.7
	feedbackMaxTokens    = 800
	feedbackTemperature  = 0.3
)

// TurnRequest is the context for one interviewer utterance
type TurnRequest struct {
	History         []llm.Message
	PersonaKey      string
	InterviewType   string
	Role            string
	ExperienceLevel string
	CurrentTurn     int
	MaxTurns        int
}

// Win is a strength observed in the interview
type Win struct {
	Point   string `json:"point"`
	Example string `json:"example"`
}

// Improvement is an area to work on
type Improvement struct {
	Point      string `json:"point"`
	Suggestion string `json:"suggestion"`
}

// SessionFeedback is the holistic end-of-session evaluation
type SessionFeedback struct {
	OverallScore    float64       `json:"overall_score"`
	Summary         string        `json:"summary"`
	TopWins         []Win         `json:"top_wins"`
	TopImprovements []Improvement `json:"top_improvements"`
	DeliveryNotes   string        `json:"delivery_notes"`
	InterviewReady  bool          `json:"interview_ready"`
	Degraded        bool          `json:"degraded,omitempty"`
}

type feedbackResponse struct {
	OverallScore    *float64      `json:"overall_score"`
	Summary         *string       `json:"summary"`
	TopWins         []Win         `json:"top_wins"`
	TopImprovements []Improvement `json:"top_improvements"`
	DeliveryNotes   string        `json:"delivery_notes"`
	InterviewReady  bool          `json:"interview_ready"`
}

// Generator produces interviewer turns and session evaluations
type Generator struct {
	chat     llm.ChatClient
	personas Personas
	logger   zerolog.Logger
}

// NewGenerator creates an interviewer generator
func NewGenerator(chat llm.ChatClient, personas Personas, logger zerolog.Logger) *Generator {
	if personas == nil {
		personas = DefaultPersonas()
	}
	return &Generator{chat: chat, personas: personas, logger: logger}
}

// Personas returns the persona table in use
func (g *Generator) Personas() Personas {
	return g.personas
}

// Respond returns the next interviewer utterance. The full history is sent every call.
func (g *Generator) Respond(ctx context.Context, req TurnRequest) (string, error) {
	persona := g.personas.Get(req.PersonaKey)

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: BuildSystemPrompt(persona, req)})
	messages = append(messages, req.History...)
	if len(req.History) == 0 {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: steeringMessage(req.InterviewType)})
	}

	text, err := g.chat.Complete(ctx, llm.ChatRequest{
		Messages:      messages,
		MaxTokens:     turnMaxTokens,
		Temperature:   turnTemperature,
		CallSite:      "interviewer_turn",
		SingleAttempt: true,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("interviewer model returned an empty response")
	}
	return text, nil
}

// SessionFeedback evaluates a finished conversation. It never fails; unusable
// model output yields a placeholder marked Degraded.
func (g *Generator) SessionFeedback(ctx context.Context, history []llm.Message, personaKey string) SessionFeedback {
	persona := g.personas.Get(personaKey)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: evaluatorPrompt(persona)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: sessionEndPrompt})

	raw, err := g.chat.Complete(ctx, llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   feedbackMaxTokens,
		Temperature: feedbackTemperature,
		CallSite:    "session_feedback",
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("Session feedback call failed")
		observability.RecordDegraded("session_feedback")
		return placeholderFeedback("")
	}

	feedback, err := parseFeedback(raw)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Session feedback was malformed")
		observability.RecordDegraded("session_feedback")
		return placeholderFeedback(raw)
	}
	return feedback
}

func parseFeedback(raw string) (SessionFeedback, error) {
	var resp feedbackResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return SessionFeedback{}, err
	}
	if resp.OverallScore == nil {
		return SessionFeedback{}, fmt.Errorf("%w: overall_score missing", llm.ErrMalformed)
	}
	if resp.Summary == nil {
		return SessionFeedback{}, fmt.Errorf("%w: summary missing", llm.ErrMalformed)
	}

	score := *resp.OverallScore
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	fb := SessionFeedback{
		OverallScore:    score,
		Summary:         *resp.Summary,
		TopWins:         resp.TopWins,
		TopImprovements: resp.TopImprovements,
		DeliveryNotes:   resp.DeliveryNotes,
		InterviewReady:  resp.InterviewReady,
	}
	if fb.TopWins == nil {
		fb.TopWins = []Win{}
	}
	if fb.TopImprovements == nil {
		fb.TopImprovements = []Improvement{}
	}
	if len(fb.TopWins) > maxTopItems {
		fb.TopWins = fb.TopWins[:maxTopItems]
	}
	if len(fb.TopImprovements) > maxTopItems {
		fb.TopImprovements = fb.TopImprovements[:maxTopItems]
	}
	return fb, nil
}

func placeholderFeedback(raw string) SessionFeedback {
	return SessionFeedback{
		OverallScore:    fallbackOverallScore,
		Summary:         fallbackSummary,
		TopWins:         []Win{},
		TopImprovements: []Improvement{},
		DeliveryNotes:   raw,
		InterviewReady:  false,
		Degraded:        true,
	}
}
