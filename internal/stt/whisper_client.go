package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowenci/interview-coach/internal/config"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/resilience"
)

// WhisperClient implements Transcriber using the OpenAI transcription API
type WhisperClient struct {
	api            *openai.Client
	model          string
	timeout        time.Duration
	circuitBreaker *resilience.CircuitBreaker
}

// NewWhisperClient creates a Whisper transcriber
func NewWhisperClient(api *openai.Client, cfg *config.Config) *WhisperClient {
	return &WhisperClient{
		api:     api,
		model:   cfg.WhisperModel,
		timeout: time.Duration(cfg.STTTimeout) * time.Second,
		circuitBreaker: resilience.NewCircuitBreaker(
			"openai_whisper",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Transcribe uploads the file and requests word-level timestamps
func (w *WhisperClient) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, audioPath)
		}
		return nil, fmt.Errorf("stat audio: %w", err)
	}

	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Prompt:   DomainPrompt,
		Language: "en",
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	}

	start := time.Now()
	var resp openai.AudioResponse
	err := w.circuitBreaker.Call(func() error {
		callCtx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()
		var err error
		resp, err = w.api.CreateTranscription(callCtx, req)
		return err
	})
	observability.ObserveExternalCall("stt", "transcribe", start, err)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	result := &TranscriptionResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Words:    make([]Word, 0, len(resp.Words)),
	}
	if result.Language == "" {
		result.Language = "en"
	}
	for _, word := range resp.Words {
		result.Words = append(result.Words, Word{Text: word.Word, Start: word.Start, End: word.End})
	}
	return result, nil
}
