package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
)

// STAR outcomes
const (
	StarScored   = "scored"
	StarSkipped  = "skipped"
	StarDegraded = "degraded"
)

const (
	starMinWords     = 20
	starMaxChars     = 2000
	starComponentMax = 25.0
	starTotalMax     = 100.0
	starMaxTokens    = 400
	starTemperature  = 0.2
)

// StarComponents are the breakdown keys, in rubric order
var StarComponents = []string{"situation", "task", "action", "result"}

const starPrompt = `You are evaluating whether a job interview answer follows the STAR structure
(Situation, Task, Action, Result).

Interview answer:
%s

Evaluate each STAR component (0-25 points each, total 0-100).
Return ONLY valid JSON:
{
  "star_score": <0-100>,
  "breakdown": {
    "situation": <0-25>,
    "task": <0-25>,
    "action": <0-25>,
    "result": <0-25>
  },
  "missing": ["situation" | "task" | "action" | "result"] (list of missing/weak components),
  "notes": "<1 sentence assessment>"
}`

// StarResult is the structure evaluation. Score is nil unless Outcome is scored.
type StarResult struct {
	Score     *float64           `json:"star_score"`
	Breakdown map[string]float64 `json:"breakdown"`
	Missing   []string           `json:"missing"`
	Notes     string             `json:"notes,omitempty"`
	Outcome   string             `json:"outcome"`
}

func emptyStar(outcome string) StarResult {
	return StarResult{Breakdown: map[string]float64{}, Missing: []string{}, Outcome: outcome}
}

type starResponse struct {
	StarScore *float64            `json:"star_score"`
	Breakdown map[string]*float64 `json:"breakdown"`
	Missing   []string            `json:"missing"`
	Notes     string              `json:"notes"`
}

// StarAnalyzer delegates structure judgement to the chat model
type StarAnalyzer struct {
	chat   llm.ChatClient
	logger zerolog.Logger
}

// NewStarAnalyzer creates a STAR analyzer
func NewStarAnalyzer(chat llm.ChatClient, logger zerolog.Logger) *StarAnalyzer {
	return &StarAnalyzer{chat: chat, logger: logger}
}

// Analyze never fails: transport or parse errors yield a degraded result with no score
func (a *StarAnalyzer) Analyze(ctx context.Context, transcript string, useStar bool) StarResult {
	if !useStar || WordCount(transcript) < starMinWords {
		return emptyStar(StarSkipped)
	}

	excerpt := truncateRunes(transcript, starMaxChars)

	raw, err := a.chat.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(starPrompt, excerpt)}},
		MaxTokens:   starMaxTokens,
		Temperature: starTemperature,
		CallSite:    "star",
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("STAR analysis call failed")
		observability.RecordDegraded("star")
		return emptyStar(StarDegraded)
	}

	result, err := parseStar(raw)
	if err != nil {
		a.logger.Warn().Err(err).Msg("STAR analysis returned malformed output")
		observability.RecordDegraded("star")
		return emptyStar(StarDegraded)
	}
	return result
}

func parseStar(raw string) (StarResult, error) {
	var resp starResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return StarResult{}, err
	}
	if resp.StarScore == nil {
		return StarResult{}, fmt.Errorf("%w: star_score missing", llm.ErrMalformed)
	}

	result := StarResult{
		Breakdown: make(map[string]float64, len(StarComponents)),
		Missing:   []string{},
		Notes:     resp.Notes,
		Outcome:   StarScored,
	}
	for _, component := range StarComponents {
		v, ok := resp.Breakdown[component]
		if !ok || v == nil {
			return StarResult{}, fmt.Errorf("%w: breakdown.%s missing", llm.ErrMalformed, component)
		}
		result.Breakdown[component] = clamp(*v, 0, starComponentMax)
	}
	for _, m := range resp.Missing {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			result.Missing = append(result.Missing, m)
		}
	}

	score := clamp(*resp.StarScore, 0, starTotalMax)
	result.Score = &score
	return result, nil
}

// truncateRunes keeps the first n characters
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
