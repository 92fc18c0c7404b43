package roleplay

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSession_IsOverExactlyAtMaxTurns(t *testing.T) {
	s := &Session{MaxTurns: 3}
	for i := 1; i <= 3; i++ {
		if s.IsOver() {
			t.Fatalf("Expected session open before assistant message %d", i)
		}
		s.AddAssistantMessage("q")
		s.AddUserMessage("a")
	}
	if !s.IsOver() {
		t.Error("Expected session over after 3 assistant messages")
	}
	if s.CurrentTurn != 3 || len(s.History) != 6 {
		t.Errorf("Expected 3 turns and 6 messages, got %d and %d", s.CurrentTurn, len(s.History))
	}
}

func TestRegistry_CreateGetEnd(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())
	s := r.Create(CreateParams{UserID: "u1", CompanyKey: "google", MaxTurns: 5})

	if s.ID == "" || s.CurrentTurn != 0 || len(s.History) != 0 || s.IsComplete {
		t.Errorf("Expected fresh session, got %+v", s)
	}
	if s.ExperienceLevel != DefaultExperienceLevel {
		t.Errorf("Expected default level, got %q", s.ExperienceLevel)
	}
	if got, ok := r.Get(s.ID); !ok || got != s {
		t.Error("Expected Get to return the session")
	}

	ended, ok := r.End(s.ID)
	if !ok || ended != s {
		t.Fatal("Expected End to return the session")
	}
	if _, ok := r.End(s.ID); ok {
		t.Error("Expected second End to report absent")
	}
	if _, ok := r.Get(s.ID); ok {
		t.Error("Expected session gone after End")
	}
}

func TestRegistry_Attach(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())
	s := r.Create(CreateParams{UserID: "u1", MaxTurns: 3})

	if _, err := r.Attach("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := r.Attach(s.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := r.Attach(s.ID); !errors.Is(err, ErrSessionAttached) {
		t.Errorf("Expected ErrSessionAttached, got %v", err)
	}
}

func TestRegistry_SweepEvictsOnlyIdleUnattached(t *testing.T) {
	r := NewRegistry(30*time.Minute, zerolog.Nop())
	base := time.Now()
	r.now = func() time.Time { return base }

	idle := r.Create(CreateParams{UserID: "u1", MaxTurns: 3, DBSessionID: "db-idle"})
	busy := r.Create(CreateParams{UserID: "u2", MaxTurns: 3})
	if _, err := r.Attach(busy.ID); err != nil {
		t.Fatal(err)
	}

	var evicted []string
	r.OnEvict(func(s *Session) { evicted = append(evicted, s.DBSessionID) })

	r.now = func() time.Time { return base.Add(10 * time.Minute) }
	if n := r.Sweep(); n != 0 {
		t.Errorf("Expected nothing evicted before TTL, got %d", n)
	}

	fresh := r.Create(CreateParams{UserID: "u3", MaxTurns: 3})
	r.now = func() time.Time { return base.Add(31 * time.Minute) }
	if n := r.Sweep(); n != 1 {
		t.Fatalf("Expected 1 eviction, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "db-idle" {
		t.Errorf("Expected db-idle evicted, got %v", evicted)
	}
	if _, ok := r.Get(idle.ID); ok {
		t.Error("Expected idle session removed")
	}
	if _, ok := r.Get(busy.ID); !ok {
		t.Error("Expected attached session kept")
	}
	if _, ok := r.Get(fresh.ID); !ok {
		t.Error("Expected recent session kept")
	}
}

func TestRegistry_Drain(t *testing.T) {
	r := NewRegistry(time.Minute, zerolog.Nop())
	r.Create(CreateParams{UserID: "u1", MaxTurns: 3})
	r.Create(CreateParams{UserID: "u2", MaxTurns: 3})

	if got := len(r.Drain()); got != 2 {
		t.Errorf("Expected 2 drained, got %d", got)
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_JanitorStops(t *testing.T) {
	r := NewRegistry(time.Nanosecond, zerolog.Nop())
	r.Create(CreateParams{UserID: "u1", MaxTurns: 3})
	r.StartJanitor(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for r.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	if r.Len() != 0 {
		t.Error("Expected janitor to evict the idle session")
	}
}
