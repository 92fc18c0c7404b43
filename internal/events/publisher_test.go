package events

import (
	"context"
	"testing"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerAnalysis != nil || p.writerSessions != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:       true,
		Brokers:       []string{"localhost:9092"},
		TopicAnalysis: "test.analysis",
		TopicSessions: "test.sessions",
	})
	defer p.Close()

	if !p.enabled {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerAnalysis.Topic != "test.analysis" || p.writerSessions.Topic != "test.sessions" {
		t.Errorf("unexpected writer topics %q %q", p.writerAnalysis.Topic, p.writerSessions.Topic)
	}
}

func TestPublisher_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicAnalysis: "a", TopicSessions: "s"})

	if err := p.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{RecordingID: "r1", UserID: "u1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishSessionEnded(context.Background(), SessionEnded{SessionID: "s1", UserID: "u1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestStamp(t *testing.T) {
	var e SessionEnded
	stamp(&e.EventID, &e.OccurredAt)
	if e.EventID == "" || e.OccurredAt.IsZero() {
		t.Errorf("expected id and timestamp to be filled, got %+v", e)
	}

	kept := SessionEnded{EventID: "fixed"}
	stamp(&kept.EventID, &kept.OccurredAt)
	if kept.EventID != "fixed" {
		t.Errorf("expected existing id to be kept, got %q", kept.EventID)
	}
}

func TestClose_Disabled(t *testing.T) {
	if err := New(nil).Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
