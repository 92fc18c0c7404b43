package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowenci/interview-coach/internal/config"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/resilience"
)

// OpenAISpeech implements Synthesizer using the OpenAI speech endpoint (MP3 output)
type OpenAISpeech struct {
	api            *openai.Client
	model          openai.SpeechModel
	voice          openai.SpeechVoice
	timeout        time.Duration
	circuitBreaker *resilience.CircuitBreaker
}

// NewOpenAISpeech creates a speech synthesizer sharing the OpenAI client
func NewOpenAISpeech(api *openai.Client, cfg *config.Config) *OpenAISpeech {
	return &OpenAISpeech{
		api:     api,
		model:   openai.SpeechModel(cfg.TTSModel),
		voice:   openai.SpeechVoice(cfg.TTSVoice),
		timeout: time.Duration(cfg.TTSTimeout) * time.Second,
		circuitBreaker: resilience.NewCircuitBreaker(
			"openai_speech",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Synthesize converts text into an MP3 clip
func (o *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()
	var clip []byte
	err := o.circuitBreaker.Call(func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		resp, err := o.api.CreateSpeech(callCtx, openai.CreateSpeechRequest{
			Model:          o.model,
			Input:          text,
			Voice:          o.voice,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return err
		}
		defer resp.Close()

		clip, err = io.ReadAll(resp)
		return err
	})
	observability.ObserveExternalCall("tts", "speech", start, err)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	return clip, nil
}
