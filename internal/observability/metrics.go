package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName is reported in logs and health payloads
const ServiceName = "interview-coach"

var (
	// Roleplay session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowenci_roleplay_active_sessions",
		Help: "Number of roleplay sessions with a live connection",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_roleplay_sessions_total",
		Help: "Roleplay sessions by terminal status",
	}, []string{"status"})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowenci_roleplay_session_duration_seconds",
		Help:    "Duration of roleplay connections in seconds",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
	})

	interviewerTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowenci_roleplay_interviewer_turns_total",
		Help: "Interviewer utterances sent to candidates",
	})

	registrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowenci_roleplay_registry_sessions",
		Help: "Sessions currently held in the in-memory registry",
	})

	// External collaborator metrics (llm, stt, tts)
	externalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_external_requests_total",
		Help: "Calls to external AI collaborators",
	}, []string{"collaborator", "call_site", "status"})

	externalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowenci_external_latency_seconds",
		Help:    "Latency of external AI collaborator calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"collaborator", "call_site"})

	degradedResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_degraded_results_total",
		Help: "Stages that fell back to a default result",
	}, []string{"stage"})

	// Analysis pipeline metrics
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_analysis_runs_total",
		Help: "Recording analyses by outcome",
	}, []string{"status"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowenci_analysis_duration_seconds",
		Help:    "End-to-end analysis time per recording",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowenci_analysis_queue_depth",
		Help: "Analysis jobs waiting for a worker",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flowenci_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Event publishing metrics
	eventPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowenci_event_publishes_total",
		Help: "Domain events published by topic and status",
	}, []string{"topic", "status"})

	eventPublishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowenci_event_publish_latency_seconds",
		Help:    "Latency of domain event publishing",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"topic"})
)

// SessionMetrics tracks metrics for a single roleplay connection
type SessionMetrics struct {
	sessionID string
	startTime time.Time
}

// NewSessionMetrics starts tracking a roleplay connection
func NewSessionMetrics(sessionID string) *SessionMetrics {
	activeSessions.Inc()
	return &SessionMetrics{sessionID: sessionID, startTime: time.Now()}
}

// RecordTurn counts one interviewer utterance
func (m *SessionMetrics) RecordTurn() {
	interviewerTurns.Inc()
}

// RecordEnd records the terminal status (completed, abandoned, rejected)
func (m *SessionMetrics) RecordEnd(status string) {
	activeSessions.Dec()
	sessionsTotal.WithLabelValues(status).Inc()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// SetRegistrySize reports how many sessions the registry holds
func SetRegistrySize(n int) {
	registrySize.Set(float64(n))
}

// ObserveExternalCall records one call to an external collaborator
func ObserveExternalCall(collaborator, callSite string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	externalRequests.WithLabelValues(collaborator, callSite, status).Inc()
	externalLatency.WithLabelValues(collaborator, callSite).Observe(time.Since(start).Seconds())
}

// RecordDegraded counts a stage that returned its fallback result
func RecordDegraded(stage string) {
	degradedResults.WithLabelValues(stage).Inc()
}

// RecordAnalysis records one finished analysis run
func RecordAnalysis(status string, elapsed time.Duration) {
	analysisRuns.WithLabelValues(status).Inc()
	analysisDuration.Observe(elapsed.Seconds())
}

// SetQueueDepth reports the analysis backlog
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordEventPublish records one domain event publish attempt
func RecordEventPublish(topic string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	eventPublishes.WithLabelValues(topic, status).Inc()
	eventPublishLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
