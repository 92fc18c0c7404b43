package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/coaching"
	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/stt"
)

// ErrTranscription marks a failed transcription stage; it is fatal to the run
var ErrTranscription = errors.New("transcription failed")

// FeedbackRecord is the full result of analyzing one recording
type FeedbackRecord struct {
	Transcript          string             `json:"transcript"`
	DurationSeconds     float64            `json:"duration_seconds"`
	FillerWordCount     int                `json:"filler_word_count"`
	FillerWordsDetail   map[string]int     `json:"filler_words_detail"`
	WordsPerMinute      float64            `json:"words_per_minute"`
	PaceCategory        string             `json:"pace_category"`
	TotalWordCount      int                `json:"total_word_count"`
	PauseCount          int                `json:"pause_count"`
	Pauses              []Pause            `json:"pauses"`
	StarScore           *float64           `json:"star_score"`
	StarBreakdown       map[string]float64 `json:"star_breakdown"`
	StarMissing         []string           `json:"star_missing"`
	StarOutcome         string             `json:"star_outcome"`
	PronunciationIssues []string           `json:"pronunciation_issues"`
	ConfidenceScore     float64            `json:"confidence_score"`
	ConfidenceFlags     []string           `json:"confidence_flags"`
	ReadinessScore      float64            `json:"readiness_score"`
	CoachingTips        []coaching.Tip     `json:"coaching_tips"`
	TipSource           string             `json:"tip_source"`
}

// Request identifies the audio and how to judge it
type Request struct {
	AudioPath string
	UseStar   bool
}

// Pipeline sequences transcription, metrics, STAR, scoring and tips.
// It persists nothing.
type Pipeline struct {
	transcriber stt.Transcriber
	star        *StarAnalyzer
	tips        *coaching.Mapper
	logger      zerolog.Logger
}

// NewPipeline wires the analysis stages to their collaborators
func NewPipeline(transcriber stt.Transcriber, chat llm.ChatClient, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		star:        NewStarAnalyzer(chat, logger),
		tips:        coaching.NewMapper(chat, logger),
		logger:      logger,
	}
}

// Run analyzes one recording. Only transcription errors propagate.
func (p *Pipeline) Run(ctx context.Context, req Request) (*FeedbackRecord, error) {
	start := time.Now()

	tr, err := p.transcriber.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	record := p.Analyze(ctx, tr, req.UseStar)
	p.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Pipeline finished")
	return record, nil
}

// Analyze scores an existing transcription
func (p *Pipeline) Analyze(ctx context.Context, tr *stt.TranscriptionResult, useStar bool) *FeedbackRecord {
	fillers := DetectFillers(tr.Text)
	wpm := WordsPerMinute(tr.Text, tr.Duration)
	pauses := DetectPauses(tr.Words, PauseThreshold)

	star := p.star.Analyze(ctx, tr.Text, useStar)
	score := ScoreConfidence(ScoreInput{
		FillerCount:     fillers.TotalCount,
		DurationSeconds: tr.Duration,
		PauseCount:      len(pauses),
		WPM:             wpm,
		StarScore:       star.Score,
	})

	tips := p.tips.Generate(ctx, coaching.Metrics{
		FillerCount:     fillers.TotalCount,
		FillerDetail:    fillers.Detail,
		WPM:             wpm,
		PauseCount:      len(pauses),
		StarBreakdown:   star.Breakdown,
		StarMissing:     star.Missing,
		Flags:           score.Flags,
		DurationSeconds: tr.Duration,
	})

	record := &FeedbackRecord{
		Transcript:          tr.Text,
		DurationSeconds:     tr.Duration,
		FillerWordCount:     fillers.TotalCount,
		FillerWordsDetail:   fillers.Detail,
		WordsPerMinute:      wpm,
		PaceCategory:        EvaluatePace(wpm),
		TotalWordCount:      WordCount(tr.Text),
		PauseCount:          len(pauses),
		Pauses:              pauses,
		StarScore:           star.Score,
		StarBreakdown:       star.Breakdown,
		StarMissing:         star.Missing,
		StarOutcome:         star.Outcome,
		PronunciationIssues: []string{},
		ConfidenceScore:     score.ConfidenceScore,
		ConfidenceFlags:     score.Flags,
		ReadinessScore:      score.ReadinessScore,
		CoachingTips:        tips.Tips,
		TipSource:           tips.Source,
	}

	p.logger.Info().
		Int("words", record.TotalWordCount).
		Int("fillers", record.FillerWordCount).
		Float64("wpm", wpm).
		Int("pauses", record.PauseCount).
		Str("star", star.Outcome).
		Str("tips", tips.Source).
		Float64("readiness", record.ReadinessScore).
		Msg("Analysis complete")
	return record
}
