package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var longAnswer = strings.Repeat("In my internship I led the migration project and we shipped it early. ", 4)

func TestStarAnalyzer_Skipped(t *testing.T) {
	chat := &fakeChat{}
	a := NewStarAnalyzer(chat, zerolog.Nop())

	tests := []struct {
		name       string
		transcript string
		useStar    bool
	}{
		{"not a star question", longAnswer, false},
		{"too short", "I led a project and it went well.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(context.Background(), tt.transcript, tt.useStar)
			if got.Score != nil || got.Outcome != StarSkipped {
				t.Errorf("Expected skipped result, got %+v", got)
			}
			if len(got.Breakdown) != 0 || len(got.Missing) != 0 {
				t.Errorf("Expected empty breakdown and missing, got %+v", got)
			}
		})
	}
	if n := chat.callCount("star"); n != 0 {
		t.Errorf("Expected no model calls, got %d", n)
	}
}

func TestStarAnalyzer_Scored(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"star": "```json\n{\"star_score\": 70, \"breakdown\": {\"situation\": 20, \"task\": 20, \"action\": 20, \"result\": 10}, \"missing\": [\"Result\"], \"notes\": \"Weak result.\"}\n```",
	}}
	a := NewStarAnalyzer(chat, zerolog.Nop())

	got := a.Analyze(context.Background(), longAnswer, true)
	if got.Outcome != StarScored || got.Score == nil || *got.Score != 70 {
		t.Fatalf("Expected scored 70, got %+v", got)
	}
	if got.Breakdown["result"] != 10 {
		t.Errorf("Expected result 10, got %v", got.Breakdown["result"])
	}
	if len(got.Missing) != 1 || got.Missing[0] != "result" {
		t.Errorf("Expected missing [result], got %v", got.Missing)
	}

	req := chat.calls[0]
	if req.Temperature != 0.2 || req.MaxTokens != 400 {
		t.Errorf("Unexpected sampling params %+v", req)
	}
}

func TestStarAnalyzer_ClampsScores(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{
		"star": `{"star_score": 130, "breakdown": {"situation": 40, "task": -3, "action": 25, "result": 25}, "missing": []}`,
	}}
	got := NewStarAnalyzer(chat, zerolog.Nop()).Analyze(context.Background(), longAnswer, true)

	if got.Score == nil || *got.Score != 100 {
		t.Fatalf("Expected score clamped to 100, got %+v", got.Score)
	}
	if got.Breakdown["situation"] != 25 || got.Breakdown["task"] != 0 {
		t.Errorf("Expected sub-scores clamped to 0..25, got %v", got.Breakdown)
	}
}

func TestStarAnalyzer_TruncatesTranscript(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{"star": "not json"}}
	huge := strings.Repeat("word ", 1000)
	NewStarAnalyzer(chat, zerolog.Nop()).Analyze(context.Background(), huge, true)

	prompt := chat.calls[0].Messages[0].Content
	if strings.Count(prompt, "word") > 400 {
		t.Errorf("Expected transcript truncated to 2000 chars, prompt has %d words", strings.Count(prompt, "word"))
	}
}

func TestStarAnalyzer_Degrades(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
	}{
		{"transport error", &fakeChat{errs: map[string]error{"star": errors.New("timeout")}}},
		{"not json", &fakeChat{responses: map[string]string{"star": "The answer is good."}}},
		{"missing score", &fakeChat{responses: map[string]string{"star": `{"breakdown": {"situation": 1, "task": 1, "action": 1, "result": 1}}`}}},
		{"missing component", &fakeChat{responses: map[string]string{"star": `{"star_score": 50, "breakdown": {"situation": 25, "task": 25}}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStarAnalyzer(tt.chat, zerolog.Nop()).Analyze(context.Background(), longAnswer, true)
			if got.Score != nil || got.Outcome != StarDegraded {
				t.Errorf("Expected degraded result, got %+v", got)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short ascii", "hello", 10, "hello"},
		{"exact ascii", "hello", 5, "hello"},
		{"cut ascii", "hello world", 5, "hello"},
		{"cut multibyte", "नमस्ते दुनिया", 6, "नमस्ते"},
		{"mixed", "héllo wörld", 7, "héllo w"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.n); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStarAnalyzer_TruncatesByCharacters(t *testing.T) {
	chat := &fakeChat{responses: map[string]string{"star": "not json"}}
	huge := strings.Repeat("समस्या हल की ", 300)
	NewStarAnalyzer(chat, zerolog.Nop()).Analyze(context.Background(), huge, true)

	prompt := chat.calls[0].Messages[0].Content
	excerpt := truncateRunes(huge, starMaxChars)
	if utf8.RuneCountInString(excerpt) != starMaxChars {
		t.Fatalf("Expected %d characters, got %d", starMaxChars, utf8.RuneCountInString(excerpt))
	}
	if !strings.Contains(prompt, excerpt) {
		t.Error("Expected the first 2000 characters in the prompt")
	}
	if strings.Contains(prompt, truncateRunes(huge, starMaxChars+1)) {
		t.Error("Expected nothing past 2000 characters in the prompt")
	}
}
