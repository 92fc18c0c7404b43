// Package coaching maps delivery metrics to actionable tips and milestone messages.
package coaching

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
)

// TipCount is the number of tips a model-generated set is normalized to
const TipCount = 3

// Tip sources
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
	SourceCanned   = "canned"
)

// Tip is one coaching recommendation
type Tip struct {
	Metric       string `json:"metric"`
	Value        string `json:"value"`
	WhyItMatters string `json:"why_it_matters"`
	RootCause    string `json:"root_cause"`
	Technique    string `json:"technique"`
	Target       string `json:"target"`
}

// TipResult is the tip list with where it came from
type TipResult struct {
	Tips   []Tip  `json:"tips"`
	Source string `json:"source"`
}

// Metrics is the issue-relevant subset of an analysis
type Metrics struct {
	FillerCount     int
	FillerDetail    map[string]int
	WPM             float64
	PauseCount      int
	StarBreakdown   map[string]float64
	StarMissing     []string
	Flags           []string
	DurationSeconds float64
}

// Issue is one detected delivery problem sent to the model
type Issue struct {
	Type     string         `json:"type"`
	Severity string         `json:"severity"`
	Data     map[string]any `json:"data"`
}

const systemPrompt = `You are Flowenci, an expert interview coach helping Indian students
speak confidently in English job interviews. You give specific, actionable, non-judgmental feedback.

For each issue, respond with exactly this JSON structure:
{
  "metric": "Short metric name (e.g. Filler Words)",
  "value": "What was measured (e.g. You said 'um' 12 times)",
  "why_it_matters": "1-2 sentences on interviewer impact",
  "root_cause": "1 sentence on why this typically happens",
  "technique": "Exact 2-3 step technique to fix it",
  "target": "Specific goal for next attempt"
}`

const userPromptTemplate = `Based on these interview delivery issues, generate the TOP 3 most impactful coaching tips.

Issues detected:
%s

Return a JSON array of exactly 3 tip objects. Return ONLY a valid JSON array, no other text.`

var greatDelivery = Tip{
	Metric:       "Great Delivery",
	Value:        "No major issues detected",
	WhyItMatters: "Clean delivery builds interviewer confidence in you.",
	RootCause:    "Strong preparation and practice.",
	Technique:    "Keep practicing. Try harder questions next.",
	Target:       "Maintain this quality consistently.",
}

var keepPracticing = Tip{
	Metric:       "Overall Delivery",
	Value:        "Good attempt - keep building",
	WhyItMatters: "Consistent practice is the fastest path to interview confidence.",
	RootCause:    "N/A",
	Technique:    "Record yourself 3 more times this week.",
	Target:       "Readiness score above 75.",
}

// Mapper generates coaching tips
type Mapper struct {
	chat   llm.ChatClient
	logger zerolog.Logger
}

// NewMapper creates a tip mapper
func NewMapper(chat llm.ChatClient, logger zerolog.Logger) *Mapper {
	return &Mapper{chat: chat, logger: logger}
}

// Generate never fails. No issues yields the canned tip; a model failure yields templates.
func (m *Mapper) Generate(ctx context.Context, metrics Metrics) TipResult {
	issues := BuildIssues(metrics)
	if len(issues) == 0 {
		return TipResult{Tips: []Tip{greatDelivery}, Source: SourceCanned}
	}

	tips, err := m.fromModel(ctx, issues)
	if err != nil {
		m.logger.Warn().Err(err).Int("issues", len(issues)).Msg("Coaching tips fell back to templates")
		observability.RecordDegraded("tips")
		return TipResult{Tips: FallbackTips(metrics), Source: SourceFallback}
	}
	return TipResult{Tips: normalize(tips, metrics), Source: SourceModel}
}

func (m *Mapper) fromModel(ctx context.Context, issues []Issue) ([]Tip, error) {
	summary, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal issues: %w", err)
	}

	raw, err := m.chat.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(userPromptTemplate, summary)},
		},
		MaxTokens:   800,
		Temperature: 0.3,
		CallSite:    "tips",
	})
	if err != nil {
		return nil, err
	}

	var tips []Tip
	if err := llm.DecodeJSON(raw, &tips); err != nil {
		return nil, err
	}
	valid := tips[:0]
	for _, t := range tips {
		if t.Metric != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no tips in response", llm.ErrMalformed)
	}
	return valid, nil
}

// normalize truncates or pads to exactly TipCount, padding from the templates
func normalize(tips []Tip, metrics Metrics) []Tip {
	if len(tips) >= TipCount {
		return tips[:TipCount]
	}
	out := append([]Tip{}, tips...)
	seen := map[string]bool{}
	for _, t := range out {
		seen[t.Metric] = true
	}
	for _, t := range append(templateTips(metrics), keepPracticing) {
		if len(out) == TipCount {
			break
		}
		if !seen[t.Metric] {
			out = append(out, t)
			seen[t.Metric] = true
		}
	}
	for len(out) < TipCount {
		out = append(out, keepPracticing)
	}
	return out
}

// BuildIssues lists detected problems with their severity
func BuildIssues(m Metrics) []Issue {
	issues := []Issue{}

	if m.FillerCount > 5 {
		severity := "medium"
		if m.FillerCount > 10 {
			severity = "high"
		}
		issues = append(issues, Issue{
			Type:     "filler_words",
			Severity: severity,
			Data: map[string]any{
				"total":           m.FillerCount,
				"top_filler":      topFiller(m.FillerDetail),
				"rate_per_minute": math.Round(float64(m.FillerCount)/math.Max(m.DurationSeconds, 1)*60*10) / 10,
			},
		})
	}

	if m.WPM != 0 && (m.WPM > 160 || m.WPM < 110) {
		severity := "medium"
		if m.WPM > 180 || m.WPM < 90 {
			severity = "high"
		}
		issues = append(issues, Issue{
			Type:     "pace",
			Severity: severity,
			Data:     map[string]any{"wpm": m.WPM, "target": "120-150 WPM"},
		})
	}

	if m.PauseCount >= 3 {
		severity := "medium"
		if m.PauseCount >= 6 {
			severity = "high"
		}
		issues = append(issues, Issue{
			Type:     "pauses",
			Severity: severity,
			Data:     map[string]any{"pause_count": m.PauseCount},
		})
	}

	if len(m.StarMissing) > 0 {
		issues = append(issues, Issue{
			Type:     "star_structure",
			Severity: "high",
			Data:     map[string]any{"missing_components": m.StarMissing},
		})
	}

	if m.DurationSeconds > 0 && m.DurationSeconds < 40 {
		issues = append(issues, Issue{
			Type:     "too_short",
			Severity: "high",
			Data:     map[string]any{"duration_seconds": m.DurationSeconds, "target": "60-90 seconds"},
		})
	}

	return issues
}

// topFiller picks the most frequent filler, ties broken alphabetically
func topFiller(detail map[string]int) string {
	if len(detail) == 0 {
		return "um"
	}
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	top := keys[0]
	for _, k := range keys[1:] {
		if detail[k] > detail[top] {
			top = k
		}
	}
	return top
}

func templateTips(m Metrics) []Tip {
	tips := []Tip{}
	if m.FillerCount > 5 {
		tips = append(tips, Tip{
			Metric:       "Filler Words",
			Value:        fmt.Sprintf("You used %d filler words", m.FillerCount),
			WhyItMatters: "Fillers make you sound unprepared and reduce credibility.",
			RootCause:    "You're filling thinking time with sounds instead of silent pauses.",
			Technique:    "Replace every filler with a 1-second silent pause. Practice 3x before re-recording.",
			Target:       fmt.Sprintf("Under %d filler words next attempt.", max(2, m.FillerCount/3)),
		})
	}
	if m.WPM != 0 && m.WPM > 160 {
		tips = append(tips, Tip{
			Metric:       "Speaking Pace",
			Value:        fmt.Sprintf("You spoke at %d WPM - too fast", int(math.Round(m.WPM))),
			WhyItMatters: "Fast speech signals nervousness and is hard to follow.",
			RootCause:    "Nerves cause rushing. Deep breathing helps.",
			Technique:    "Take one deep breath before starting. Pause after each sentence.",
			Target:       "120-150 WPM next attempt.",
		})
	}
	return tips
}

// FallbackTips is the local template set: filler and pace tips, or the generic tip alone
func FallbackTips(m Metrics) []Tip {
	tips := templateTips(m)
	if len(tips) == 0 {
		tips = append(tips, keepPracticing)
	}
	if len(tips) > TipCount {
		tips = tips[:TipCount]
	}
	return tips
}
