package roleplay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/observability"
)

var (
	// ErrSessionNotFound is returned for unknown, ended or evicted sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAttached is returned when a connection already owns the session
	ErrSessionAttached = errors.New("session already attached")
)

// CreateParams describes a new session
type CreateParams struct {
	UserID          string
	CompanyKey      string
	InterviewType   string
	Role            string
	ExperienceLevel string
	MaxTurns        int
	DBSessionID     string
}

// Registry holds the active sessions of this process
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL time.Duration
	onEvict func(*Session)
	now     func() time.Time
	logger  zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates an empty registry. Unattached sessions older than idleTTL
// are evicted by Sweep; zero disables eviction.
func NewRegistry(idleTTL time.Duration, logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger.With().Str("component", "session_registry").Logger(),
		stopChan: make(chan struct{}),
	}
}

// OnEvict registers a hook called for every session removed by Sweep
func (r *Registry) OnEvict(fn func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Create registers a fresh session with turn 0 and empty history
func (r *Registry) Create(p CreateParams) *Session {
	level := p.ExperienceLevel
	if level == "" {
		level = DefaultExperienceLevel
	}
	s := &Session{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		CompanyKey:      p.CompanyKey,
		InterviewType:   p.InterviewType,
		Role:            p.Role,
		ExperienceLevel: level,
		MaxTurns:        p.MaxTurns,
		DBSessionID:     p.DBSessionID,
		History:         []llm.Message{},
		CreatedAt:       r.now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	observability.SetRegistrySize(n)
	return s
}

// Get looks a session up by id
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Attach hands the session to a connection. Only one connection may own it.
func (r *Registry) Attach(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.attached {
		return nil, ErrSessionAttached
	}
	s.attached = true
	return s, nil
}

// End removes and returns the session. Ending an absent id returns false.
func (r *Registry) End(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		observability.SetRegistrySize(n)
	}
	return s, ok
}

// Len returns the number of active sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts unattached sessions older than the idle TTL and returns how many
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if !s.attached && s.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, s)
		}
	}
	n := len(r.sessions)
	hook := r.onEvict
	r.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	observability.SetRegistrySize(n)
	for _, s := range evicted {
		r.logger.Info().
			Str("session_id", s.ID).
			Str("db_session_id", s.DBSessionID).
			Msg("Evicted idle session")
		if hook != nil {
			hook(s)
		}
	}
	return len(evicted)
}

// StartJanitor sweeps on every interval until Stop
func (r *Registry) StartJanitor(interval time.Duration) {
	if interval <= 0 || r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
	r.logger.Info().Dur("interval", interval).Dur("idle_ttl", r.idleTTL).Msg("Session janitor started")
}

// Stop stops the janitor
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Drain removes every session and returns them; used at shutdown
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	drained := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		drained = append(drained, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	observability.SetRegistrySize(0)
	r.logger.Info().Int("sessions", len(drained)).Msg("Session registry drained")
	return drained
}
