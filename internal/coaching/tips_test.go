package coaching

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
)

type fakeChat struct {
	response string
	err      error
	calls    []llm.ChatRequest
}

func (f *fakeChat) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.response, f.err
}

func TestMapper_NoIssuesReturnsCannedTip(t *testing.T) {
	chat := &fakeChat{}
	got := NewMapper(chat, zerolog.Nop()).Generate(context.Background(), Metrics{
		FillerCount: 1, WPM: 135, PauseCount: 0, DurationSeconds: 75,
	})

	if got.Source != SourceCanned || len(got.Tips) != 1 || got.Tips[0].Metric != "Great Delivery" {
		t.Errorf("Expected canned tip, got %+v", got)
	}
	if len(chat.calls) != 0 {
		t.Errorf("Expected no model call, got %d", len(chat.calls))
	}
}

func TestMapper_ModelTipsNormalizedToThree(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"truncates", `[{"metric":"A"},{"metric":"B"},{"metric":"C"},{"metric":"D"}]`},
		{"pads", "```json\n[{\"metric\":\"A\",\"value\":\"v\"}]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{response: tt.response}
			got := NewMapper(chat, zerolog.Nop()).Generate(context.Background(), Metrics{FillerCount: 12, DurationSeconds: 60})
			if got.Source != SourceModel {
				t.Fatalf("Expected model source, got %s", got.Source)
			}
			if len(got.Tips) != TipCount {
				t.Fatalf("Expected %d tips, got %d", TipCount, len(got.Tips))
			}
			if got.Tips[0].Metric != "A" {
				t.Errorf("Expected model tip first, got %q", got.Tips[0].Metric)
			}
		})
	}
}

func TestMapper_PaddingPrefersTemplates(t *testing.T) {
	chat := &fakeChat{response: `[{"metric":"Structure"}]`}
	got := NewMapper(chat, zerolog.Nop()).Generate(context.Background(), Metrics{FillerCount: 9, WPM: 175, DurationSeconds: 60})

	metrics := []string{got.Tips[0].Metric, got.Tips[1].Metric, got.Tips[2].Metric}
	want := []string{"Structure", "Filler Words", "Speaking Pace"}
	for i := range want {
		if metrics[i] != want[i] {
			t.Errorf("Expected tip %d to be %q, got %q", i, want[i], metrics[i])
		}
	}
}

func TestMapper_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		chat        *fakeChat
		metrics     Metrics
		wantMetrics []string
	}{
		{
			name:        "transport error with filler and pace",
			chat:        &fakeChat{err: errors.New("503")},
			metrics:     Metrics{FillerCount: 9, WPM: 175, DurationSeconds: 60},
			wantMetrics: []string{"Filler Words", "Speaking Pace"},
		},
		{
			name:        "malformed output with only pauses",
			chat:        &fakeChat{response: "Here are your tips!"},
			metrics:     Metrics{PauseCount: 4, WPM: 130, DurationSeconds: 60},
			wantMetrics: []string{"Overall Delivery"},
		},
		{
			name:        "empty array",
			chat:        &fakeChat{response: "[]"},
			metrics:     Metrics{FillerCount: 6, DurationSeconds: 60},
			wantMetrics: []string{"Filler Words"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMapper(tt.chat, zerolog.Nop()).Generate(context.Background(), tt.metrics)
			if got.Source != SourceFallback {
				t.Fatalf("Expected fallback source, got %s", got.Source)
			}
			if len(got.Tips) != len(tt.wantMetrics) {
				t.Fatalf("Expected %d tips, got %+v", len(tt.wantMetrics), got.Tips)
			}
			for i, m := range tt.wantMetrics {
				if got.Tips[i].Metric != m {
					t.Errorf("Expected tip %d %q, got %q", i, m, got.Tips[i].Metric)
				}
			}
		})
	}
}

func TestFallbackTips_Values(t *testing.T) {
	tips := FallbackTips(Metrics{FillerCount: 12, WPM: 172.4})
	if tips[0].Target != "Under 4 filler words next attempt." {
		t.Errorf("Unexpected filler target %q", tips[0].Target)
	}
	if tips[1].Value != "You spoke at 172 WPM - too fast" {
		t.Errorf("Unexpected pace value %q", tips[1].Value)
	}

	low := FallbackTips(Metrics{FillerCount: 6})
	if low[0].Target != "Under 2 filler words next attempt." {
		t.Errorf("Expected floor of 2, got %q", low[0].Target)
	}
}

func TestBuildIssues(t *testing.T) {
	issues := BuildIssues(Metrics{
		FillerCount:     11,
		FillerDetail:    map[string]int{"um": 6, "like": 5},
		WPM:             95,
		PauseCount:      6,
		StarMissing:     []string{"result"},
		DurationSeconds: 35,
	})

	want := map[string]string{
		"filler_words":   "high",
		"pace":           "medium",
		"pauses":         "high",
		"star_structure": "high",
		"too_short":      "high",
	}
	if len(issues) != len(want) {
		t.Fatalf("Expected %d issues, got %+v", len(want), issues)
	}
	for _, issue := range issues {
		if want[issue.Type] != issue.Severity {
			t.Errorf("Expected %s severity %s, got %s", issue.Type, want[issue.Type], issue.Severity)
		}
	}
	if issues[0].Data["top_filler"] != "um" {
		t.Errorf("Expected top filler um, got %v", issues[0].Data["top_filler"])
	}
	if issues[0].Data["rate_per_minute"] != 18.9 {
		t.Errorf("Expected rate 18.9, got %v", issues[0].Data["rate_per_minute"])
	}
}

func TestBuildIssues_UnknownDurationIsNotTooShort(t *testing.T) {
	for _, issue := range BuildIssues(Metrics{DurationSeconds: 0}) {
		if issue.Type == "too_short" {
			t.Error("Expected no too_short issue when duration is unknown")
		}
	}
}
