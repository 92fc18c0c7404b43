package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/flowenci/interview-coach/internal/config"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/resilience"
)

var initDeepgram sync.Once

// DeepgramClient implements Transcriber using Deepgram's prerecorded API
type DeepgramClient struct {
	config         *config.Config
	rest           *api.Client
	timeout        time.Duration
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramClient creates a new Deepgram prerecorded client
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	initDeepgram.Do(listenClient.InitWithDefault)

	c := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})
	return &DeepgramClient{
		config:  cfg,
		rest:    api.New(c),
		timeout: time.Duration(cfg.STTTimeout) * time.Second,
		circuitBreaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Transcribe sends the whole file and maps the first channel's best alternative
func (d *DeepgramClient) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, audioPath)
		}
		return nil, fmt.Errorf("stat audio: %w", err)
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.DeepgramModel,
		Language:    d.config.DeepgramLanguage,
		Punctuate:   true,
		SmartFormat: true,
		Keywords:    DomainKeywords,
	}

	start := time.Now()
	result := &TranscriptionResult{Language: d.config.DeepgramLanguage, Words: []Word{}}
	err := d.circuitBreaker.Call(func() error {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		res, err := d.rest.FromFile(callCtx, audioPath, options)
		if err != nil {
			return err
		}
		if res.Metadata != nil {
			result.Duration = res.Metadata.Duration
		}
		if res.Results == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
			return nil
		}

		alt := res.Results.Channels[0].Alternatives[0]
		result.Text = strings.TrimSpace(alt.Transcript)
		for _, w := range alt.Words {
			text := w.PunctuatedWord
			if text == "" {
				text = w.Word
			}
			result.Words = append(result.Words, Word{Text: text, Start: w.Start, End: w.End})
		}
		return nil
	})
	observability.ObserveExternalCall("stt", "transcribe", start, err)
	if err != nil {
		return nil, fmt.Errorf("deepgram transcription: %w", err)
	}
	return result, nil
}
