// Package practice runs recorded-answer analysis jobs and derives progress views from stored feedback.
package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/analysis"
	"github.com/flowenci/interview-coach/internal/events"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/queue"
	"github.com/flowenci/interview-coach/internal/store"
)

const statusTimeout = 5 * time.Second

// Analyzer runs the full analysis for one recording file
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.FeedbackRecord, error)
}

// Files resolves and removes uploaded recordings
type Files interface {
	Path(fileKey string) string
	Delete(fileKey string) error
}

// AnalysisPublisher receives analysis-completed events
type AnalysisPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event events.AnalysisCompleted) error
}

// Runner executes analysis jobs taken from the queue
type Runner struct {
	store    store.DataStore
	pipeline Analyzer
	files    Files
	events   AnalysisPublisher
	logger   zerolog.Logger
}

// NewRunner creates a job runner. pub may be nil.
func NewRunner(ds store.DataStore, pipeline Analyzer, files Files, pub AnalysisPublisher, logger zerolog.Logger) *Runner {
	return &Runner{
		store:    ds,
		pipeline: pipeline,
		files:    files,
		events:   pub,
		logger:   logger,
	}
}

// Handle analyses one recording. Any failure marks the recording failed.
func (r *Runner) Handle(ctx context.Context, job queue.Job) (err error) {
	logger := observability.RecordingLogger(job.RecordingID, job.CorrelationID)
	start := time.Now()

	defer func() {
		if err != nil {
			logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Analysis failed")
			r.markFailed(ctx, job.RecordingID, logger)
			observability.RecordAnalysis(store.StatusFailed, time.Since(start))
		}
	}()

	rec, err := r.store.GetRecording(ctx, job.RecordingID, "")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn().Msg("Recording vanished before analysis")
			return nil
		}
		return fmt.Errorf("load recording: %w", err)
	}

	useStar := false
	if rec.QuestionID != nil {
		q, qerr := r.store.GetQuestion(ctx, *rec.QuestionID)
		switch {
		case qerr == nil:
			useStar = q.UseStar
		case errors.Is(qerr, store.ErrNotFound):
			logger.Debug().Str("question_id", *rec.QuestionID).Msg("Question inactive, analysing without STAR")
		default:
			return fmt.Errorf("load question: %w", qerr)
		}
	}

	result, err := r.pipeline.Run(ctx, analysis.Request{
		AudioPath: r.files.Path(rec.FileKey),
		UseStar:   useStar,
	})
	if err != nil {
		return err
	}

	fb := store.NewFeedback(uuid.NewString(), rec.ID, result)
	if err := r.store.InsertFeedback(ctx, fb); err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("store feedback: %w", err)
	}
	if err := r.store.CompleteRecording(ctx, rec.ID, result.Transcript, result.DurationSeconds); err != nil {
		return fmt.Errorf("complete recording: %w", err)
	}

	if err := r.files.Delete(rec.FileKey); err != nil {
		logger.Warn().Err(err).Msg("Failed to delete analysed upload")
	}

	r.publish(ctx, rec, result, logger)

	elapsed := time.Since(start)
	observability.RecordAnalysis(store.StatusDone, elapsed)
	logger.Info().
		Float64("readiness_score", result.ReadinessScore).
		Int("filler_words", result.FillerWordCount).
		Str("star_outcome", result.StarOutcome).
		Str("tip_source", result.TipSource).
		Dur("elapsed", elapsed).
		Msg("Analysis complete")
	return nil
}

// MarkFailed releases a claimed recording whose job could not run
func (r *Runner) MarkFailed(job queue.Job) {
	r.markFailed(context.Background(), job.RecordingID, observability.RecordingLogger(job.RecordingID, job.CorrelationID))
}

func (r *Runner) markFailed(ctx context.Context, recordingID string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()
	if err := r.store.SetRecordingStatus(ctx, recordingID, store.StatusFailed); err != nil {
		logger.Error().Err(err).Msg("Failed to mark recording failed")
	}
}

func (r *Runner) publish(ctx context.Context, rec *store.Recording, result *analysis.FeedbackRecord, logger zerolog.Logger) {
	if r.events == nil {
		return
	}
	event := events.AnalysisCompleted{
		RecordingID:     rec.ID,
		UserID:          rec.UserID,
		AttemptNumber:   rec.AttemptNumber,
		ReadinessScore:  result.ReadinessScore,
		ConfidenceScore: result.ConfidenceScore,
		FillerWordCount: result.FillerWordCount,
		WordsPerMinute:  result.WordsPerMinute,
		StarScore:       result.StarScore,
	}
	if rec.QuestionID != nil {
		event.QuestionID = *rec.QuestionID
	}
	if err := r.events.PublishAnalysisCompleted(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish analysis event")
	}
}
