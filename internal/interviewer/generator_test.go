package interviewer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
)

type fakeChat struct {
	response string
	err      error
	last     llm.ChatRequest
}

func (f *fakeChat) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.last = req
	return f.response, f.err
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(DefaultPersonas().Get("amazon"), TurnRequest{
		InterviewType:   TypeBehavioral,
		Role:            "SDE Intern",
		ExperienceLevel: "student",
		CurrentTurn:     2,
		MaxTurns:        8,
	})

	for _, want := range []string{
		"behavioral interview for a SDE Intern position at Amazon",
		"Principal Engineer at Amazon",
		"After 8 exchanges",
		"Candidate level: student",
		"Turn number: 2 of 8",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "{") {
		t.Error("Expected every placeholder to be replaced")
	}
}

func TestPersonas_UnknownFallsBackToGeneric(t *testing.T) {
	p := DefaultPersonas()
	if got := p.Get("netflix"); got.Company != "our company" {
		t.Errorf("Expected generic persona, got %q", got.Company)
	}
	if got := p.Get("GOOGLE"); got.Company != "Google" {
		t.Errorf("Expected case-insensitive lookup, got %q", got.Company)
	}
	if len(p.Keys()) != 5 {
		t.Errorf("Expected 5 personas, got %v", p.Keys())
	}
}

func TestLoadPersonas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	data := "tcs:\n  company: TCS\n  description: You are a delivery manager at TCS.\n" +
		"Amazon:\n  company: Amazon India\n  description: You are a bar raiser.\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPersonas(path)
	if err != nil {
		t.Fatalf("LoadPersonas failed: %v", err)
	}
	if !p.Has("tcs") || p.Get("tcs").Company != "TCS" {
		t.Error("Expected tcs persona to be added")
	}
	if p.Get("amazon").Company != "Amazon India" {
		t.Error("Expected amazon persona to be overridden")
	}
	if !p.Has("google") {
		t.Error("Expected defaults to be kept")
	}
}

func TestLoadPersonas_Errors(t *testing.T) {
	if p, err := LoadPersonas(""); err != nil || len(p) != 5 {
		t.Errorf("Expected defaults for empty path, got %v %v", p, err)
	}
	if _, err := LoadPersonas(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("tcs:\n  company: TCS\n"), 0o644)
	if _, err := LoadPersonas(path); err == nil {
		t.Error("Expected error for persona without description")
	}
}

func TestRespond_FirstTurnSteering(t *testing.T) {
	chat := &fakeChat{response: "Tell me about yourself."}
	g := NewGenerator(chat, nil, zerolog.Nop())

	text, err := g.Respond(context.Background(), TurnRequest{
		PersonaKey: "google", InterviewType: TypeTechnical, Role: "SWE", CurrentTurn: 0, MaxTurns: 5,
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if text != "Tell me about yourself." {
		t.Errorf("Unexpected text %q", text)
	}

	msgs := chat.last.Messages
	if len(msgs) != 2 {
		t.Fatalf("Expected system prompt plus steering, got %d messages", len(msgs))
	}
	if msgs[1].Role != llm.RoleSystem || !strings.Contains(msgs[1].Content, "most significant technical project") {
		t.Errorf("Unexpected steering message %+v", msgs[1])
	}
	if chat.last.MaxTokens != 300 || chat.last.Temperature != 0.7 || !chat.last.SingleAttempt {
		t.Errorf("Unexpected sampling params %+v", chat.last)
	}
}

func TestRespond_LaterTurnsSendHistory(t *testing.T) {
	chat := &fakeChat{response: "Why?"}
	g := NewGenerator(chat, nil, zerolog.Nop())
	history := []llm.Message{
		{Role: llm.RoleAssistant, Content: "Tell me about yourself."},
		{Role: llm.RoleUser, Content: "I am a final-year student."},
	}

	if _, err := g.Respond(context.Background(), TurnRequest{History: history, InterviewType: TypeBehavioral, CurrentTurn: 1, MaxTurns: 8}); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	msgs := chat.last.Messages
	if len(msgs) != 3 {
		t.Fatalf("Expected system prompt plus 2 history entries, got %d", len(msgs))
	}
	if msgs[2].Content != "I am a final-year student." {
		t.Errorf("Expected history to be resent in order, got %+v", msgs)
	}
}

func TestRespond_Errors(t *testing.T) {
	g := NewGenerator(&fakeChat{err: errors.New("timeout")}, nil, zerolog.Nop())
	if _, err := g.Respond(context.Background(), TurnRequest{}); err == nil {
		t.Error("Expected transport error to propagate")
	}

	g = NewGenerator(&fakeChat{response: ""}, nil, zerolog.Nop())
	if _, err := g.Respond(context.Background(), TurnRequest{}); err == nil {
		t.Error("Expected error for empty response")
	}
}

func TestSessionFeedback(t *testing.T) {
	chat := &fakeChat{response: "```json\n" + `{"overall_score": 78, "summary": "Solid.",
		"top_wins": [{"point": "a", "example": "b"}, {"point": "c", "example": "d"}, {"point": "e", "example": "f"}, {"point": "g", "example": "h"}],
		"top_improvements": [{"point": "x", "suggestion": "y"}],
		"delivery_notes": "Calm.", "interview_ready": true}` + "\n```"}
	g := NewGenerator(chat, nil, zerolog.Nop())

	fb := g.SessionFeedback(context.Background(), []llm.Message{{Role: llm.RoleAssistant, Content: "Hi"}}, "infosys")
	if fb.Degraded {
		t.Fatal("Expected well-formed feedback")
	}
	if fb.OverallScore != 78 || fb.Summary != "Solid." || !fb.InterviewReady {
		t.Errorf("Unexpected feedback %+v", fb)
	}
	if len(fb.TopWins) != 3 || len(fb.TopImprovements) != 1 {
		t.Errorf("Expected wins capped at 3, got %d wins %d improvements", len(fb.TopWins), len(fb.TopImprovements))
	}

	msgs := chat.last.Messages
	if !strings.Contains(msgs[0].Content, "at Infosys") {
		t.Errorf("Expected evaluator prompt to name the company, got %q", msgs[0].Content)
	}
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || !strings.Contains(last.Content, "The interview has concluded") {
		t.Errorf("Expected rubric as the final user message, got %+v", last)
	}
}

func TestSessionFeedback_Degraded(t *testing.T) {
	tests := []struct {
		name      string
		chat      *fakeChat
		wantNotes string
	}{
		{"not json", &fakeChat{response: "Great job overall!"}, "Great job overall!"},
		{"missing score", &fakeChat{response: `{"summary": "ok"}`}, `{"summary": "ok"}`},
		{"transport error", &fakeChat{err: errors.New("503")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := NewGenerator(tt.chat, nil, zerolog.Nop()).SessionFeedback(context.Background(), nil, "generic")
			if !fb.Degraded || fb.OverallScore != 60 || fb.InterviewReady {
				t.Errorf("Expected placeholder feedback, got %+v", fb)
			}
			if fb.Summary != "Session completed. Detailed analysis unavailable." {
				t.Errorf("Unexpected summary %q", fb.Summary)
			}
			if fb.DeliveryNotes != tt.wantNotes {
				t.Errorf("Expected notes %q, got %q", tt.wantNotes, fb.DeliveryNotes)
			}
			if fb.TopWins == nil || len(fb.TopWins) != 0 {
				t.Errorf("Expected empty wins, got %v", fb.TopWins)
			}
		})
	}
}
