// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/flowenci/interview-coach/internal/observability"
)

// Event types, sent in the eventType header
const (
	TypeAnalysisCompleted = "analysis.completed"
	TypeRoleplayEnded     = "roleplay.ended"
)

// AnalysisCompleted is emitted after a recording's feedback is stored
type AnalysisCompleted struct {
	EventID         string    `json:"event_id"`
	RecordingID     string    `json:"recording_id"`
	UserID          string    `json:"user_id"`
	QuestionID      string    `json:"question_id,omitempty"`
	AttemptNumber   int       `json:"attempt_number"`
	ReadinessScore  float64   `json:"readiness_score"`
	ConfidenceScore float64   `json:"confidence_score"`
	FillerWordCount int       `json:"filler_word_count"`
	WordsPerMinute  float64   `json:"words_per_minute"`
	StarScore       *float64  `json:"star_score"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// SessionEnded is emitted when a roleplay connection finishes
type SessionEnded struct {
	EventID         string    `json:"event_id"`
	SessionID       string    `json:"session_id"`
	DBSessionID     string    `json:"db_session_id"`
	UserID          string    `json:"user_id"`
	CompanyKey      string    `json:"company_key"`
	InterviewType   string    `json:"interview_type"`
	Status          string    `json:"status"`
	TotalTurns      int       `json:"total_turns"`
	DurationSeconds float64   `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher publishes domain events to separate Kafka topics.
type Publisher struct {
	writerAnalysis *kafka.Writer
	writerSessions *kafka.Writer
	topicAnalysis  string
	topicSessions  string
	enabled        bool
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicAnalysis string
	TopicSessions string
	Enabled       bool
}

// New creates a publisher. Without brokers it runs in log-only mode.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			topicAnalysis: cfg.TopicAnalysis,
			topicSessions: cfg.TopicSessions,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicAnalysis", cfg.TopicAnalysis).
		Str("topicSessions", cfg.TopicSessions).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerAnalysis: newWriter(cfg.TopicAnalysis),
		writerSessions: newWriter(cfg.TopicSessions),
		topicAnalysis:  cfg.TopicAnalysis,
		topicSessions:  cfg.TopicSessions,
		enabled:        true,
	}
}

// PublishAnalysisCompleted keys the event by user so a user's events stay ordered.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error {
	stamp(&event.EventID, &event.OccurredAt)
	return p.publish(ctx, p.writerAnalysis, p.topicAnalysis, TypeAnalysisCompleted, event.UserID, event)
}

// PublishSessionEnded keys the event by user.
func (p *Publisher) PublishSessionEnded(ctx context.Context, event SessionEnded) error {
	stamp(&event.EventID, &event.OccurredAt)
	return p.publish(ctx, p.writerSessions, p.topicSessions, TypeRoleplayEnded, event.UserID, event)
}

func stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		observability.RecordEventPublish(eventType, nil, time.Since(start))
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "source", Value: []byte(observability.ServiceName)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		observability.RecordEventPublish(eventType, err, time.Since(start))
		return err
	}

	observability.RecordEventPublish(eventType, nil, time.Since(start))
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerAnalysis != nil {
		if e := p.writerAnalysis.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing analysis writer")
			err = e
		}
	}
	if p.writerSessions != nil {
		if e := p.writerSessions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing sessions writer")
			err = e
		}
	}
	return err
}
