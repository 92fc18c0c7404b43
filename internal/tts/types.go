package tts

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rs/zerolog"
)

// Synthesizer defines the interface for a text-to-speech collaborator
type Synthesizer interface {
	// Synthesize converts text to a complete audio clip
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Noop is used when speech synthesis is not configured
type Noop struct{}

// Synthesize always returns no audio
func (Noop) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}

// SpeakBase64 synthesizes text and base64-encodes the clip.
// Any failure yields "" so a roleplay turn never fails on audio.
func SpeakBase64(ctx context.Context, s Synthesizer, text string, logger zerolog.Logger) string {
	if s == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	clip, err := s.Synthesize(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("Speech synthesis failed, sending text only")
		return ""
	}
	if len(clip) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(clip)
}
