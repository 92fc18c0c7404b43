package roleplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/events"
	"github.com/flowenci/interview-coach/internal/interviewer"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/store"
	"github.com/flowenci/interview-coach/internal/tts"
)

const persistTimeout = 10 * time.Second

// Conn is one bidirectional client connection
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close(code int, reason string) error
}

// Responder produces the next interviewer utterance
type Responder interface {
	Respond(ctx context.Context, req interviewer.TurnRequest) (string, error)
}

// SessionStore persists the terminal state of a session
type SessionStore interface {
	FinishInterviewSession(ctx context.Context, id string, fin store.SessionFinish) error
}

// EventPublisher receives session-ended events
type EventPublisher interface {
	PublishSessionEnded(ctx context.Context, event events.SessionEnded) error
}

// Handler drives the interview protocol for attached connections
type Handler struct {
	registry    *Registry
	interviewer Responder
	speech      tts.Synthesizer
	sessions    SessionStore
	events      EventPublisher
	logger      zerolog.Logger

	mu      sync.Mutex
	closing bool
	active  sync.WaitGroup
}

// NewHandler wires the protocol handler. speech and events may be nil.
func NewHandler(registry *Registry, gen Responder, speech tts.Synthesizer, sessions SessionStore, pub EventPublisher, logger zerolog.Logger) *Handler {
	return &Handler{
		registry:    registry,
		interviewer: gen,
		speech:      speech,
		sessions:    sessions,
		events:      pub,
		logger:      logger,
	}
}

// Wait refuses new connections and blocks until every running one has finished its cleanup
func (h *Handler) Wait() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.active.Wait()
}

// Closing reports whether Wait has been called
func (h *Handler) Closing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// begin registers a connection unless the handler is shutting down
func (h *Handler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.active.Add(1)
	return true
}

// errClientGone ends the loop without an error reply
var errClientGone = errors.New("client disconnected")

// Serve runs one connection to completion. Cancelling ctx closes the connection.
func (h *Handler) Serve(ctx context.Context, conn Conn, sessionID string) {
	if !h.begin() {
		conn.WriteJSON(errorMessage(msgShuttingDown))
		conn.Close(CloseGoingAway, "server shutting down")
		return
	}
	defer h.active.Done()

	sess, err := h.registry.Attach(sessionID)
	if err != nil {
		code, text := CloseSessionNotFound, msgSessionNotFound
		if errors.Is(err, ErrSessionAttached) {
			code, text = CloseSessionInUse, msgSessionInUse
		}
		h.logger.Info().Err(err).Str("session_id", sessionID).Msg("Rejected roleplay connection")
		conn.WriteJSON(errorMessage(text))
		conn.Close(code, err.Error())
		return
	}

	logger := observability.SessionLogger(sess.ID, sess.UserID).With().
		Str("db_session_id", sess.DBSessionID).
		Str("company", sess.CompanyKey).
		Logger()
	metrics := observability.NewSessionMetrics(sess.ID)
	started := time.Now()

	stop := context.AfterFunc(ctx, func() {
		conn.Close(CloseGoingAway, "server shutting down")
	})
	defer stop()

	logger.Info().Int("max_turns", sess.MaxTurns).Msg("Roleplay connection attached")

	err = h.converse(ctx, conn, sess, metrics, logger)
	switch {
	case err == nil:
		conn.Close(CloseNormal, "session ended")
	case errors.Is(err, errClientGone):
		logger.Info().Msg("Roleplay client disconnected")
	default:
		logger.Error().Err(err).Msg("Roleplay connection failed")
		conn.WriteJSON(errorMessage(msgInternalError))
		conn.Close(CloseNormal, "internal error")
	}

	h.finish(ctx, sess, time.Since(started), logger)
	metrics.RecordEnd(sess.Status())
}

func (h *Handler) converse(ctx context.Context, conn Conn, sess *Session, metrics *observability.SessionMetrics, logger zerolog.Logger) error {
	opening, err := h.nextTurn(ctx, sess)
	if err != nil {
		return err
	}
	metrics.RecordTurn()
	audio := tts.SpeakBase64(ctx, h.speech, opening, logger)
	if err := conn.WriteJSON(turnMessage(TypeQuestion, opening, audio, 0, sess.MaxTurns, false)); err != nil {
		return fmt.Errorf("%w: %v", errClientGone, err)
	}

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: %v", errClientGone, err)
		}

		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil || !validInbound(msg.Type) {
			if err := conn.WriteJSON(errorMessage(msgInvalidFormat)); err != nil {
				return fmt.Errorf("%w: %v", errClientGone, err)
			}
			continue
		}

		var reply Outbound
		switch msg.Type {
		case TypePing:
			reply = Outbound{Type: TypePong, Content: ""}

		case TypeEndSession:
			sess.IsComplete = true
			return nil

		case TypeAnswer:
			answer := strings.TrimSpace(msg.Content)
			if answer == "" {
				reply = errorMessage(msgEmptyAnswer)
				break
			}
			sess.AddUserMessage(msg.Content)

			if sess.IsOver() {
				sess.AddAssistantMessage(interviewer.WrapUpLine)
				audio := tts.SpeakBase64(ctx, h.speech, interviewer.WrapUpLine, logger)
				end := turnMessage(TypeSessionEnd, interviewer.WrapUpLine, audio, sess.CurrentTurn, sess.MaxTurns, true)
				if err := conn.WriteJSON(end); err != nil {
					return fmt.Errorf("%w: %v", errClientGone, err)
				}
				sess.IsComplete = true
				return nil
			}

			text, err := h.nextTurn(ctx, sess)
			if err != nil {
				return err
			}
			metrics.RecordTurn()
			msgType := TypeQuestion
			if sess.CurrentTurn > 1 {
				msgType = TypeFollowUp
			}
			audio := tts.SpeakBase64(ctx, h.speech, text, logger)
			reply = turnMessage(msgType, text, audio, sess.CurrentTurn, sess.MaxTurns, false)
		}

		if err := conn.WriteJSON(reply); err != nil {
			return fmt.Errorf("%w: %v", errClientGone, err)
		}
	}
}

// nextTurn asks the interviewer for an utterance and records it
func (h *Handler) nextTurn(ctx context.Context, sess *Session) (string, error) {
	text, err := h.interviewer.Respond(ctx, interviewer.TurnRequest{
		History:         sess.History,
		PersonaKey:      sess.CompanyKey,
		InterviewType:   sess.InterviewType,
		Role:            sess.Role,
		ExperienceLevel: sess.ExperienceLevel,
		CurrentTurn:     sess.CurrentTurn,
		MaxTurns:        sess.MaxTurns,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", errClientGone, ctx.Err())
		}
		return "", fmt.Errorf("interviewer turn %d: %w", sess.CurrentTurn, err)
	}
	sess.AddAssistantMessage(text)
	return text, nil
}

// finish removes the session and persists it when the interviewer spoke at least once
func (h *Handler) finish(ctx context.Context, sess *Session, elapsed time.Duration, logger zerolog.Logger) {
	h.registry.End(sess.ID)

	if sess.CurrentTurn == 0 {
		logger.Info().Msg("Roleplay ended before the first turn, nothing to persist")
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	status := sess.Status()
	duration := elapsed.Seconds()
	if h.sessions != nil && sess.DBSessionID != "" {
		err := h.sessions.FinishInterviewSession(saveCtx, sess.DBSessionID, store.SessionFinish{
			History:         sess.History,
			TotalTurns:      sess.CurrentTurn,
			Status:          status,
			DurationSeconds: duration,
			Ended:           sess.IsComplete,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to save roleplay session")
			observability.RecordError("persist", "roleplay")
		}
	}

	if h.events != nil {
		err := h.events.PublishSessionEnded(saveCtx, events.SessionEnded{
			SessionID:       sess.ID,
			DBSessionID:     sess.DBSessionID,
			UserID:          sess.UserID,
			CompanyKey:      sess.CompanyKey,
			InterviewType:   sess.InterviewType,
			Status:          status,
			TotalTurns:      sess.CurrentTurn,
			DurationSeconds: duration,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to publish session ended event")
		}
	}

	logger.Info().
		Str("status", status).
		Int("turns", sess.CurrentTurn).
		Float64("duration_seconds", duration).
		Msg("Roleplay session finished")
}
