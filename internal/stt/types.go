package stt

import (
	"context"
	"errors"
)

// ErrAudioNotFound is returned when the recording file is missing on disk
var ErrAudioNotFound = errors.New("audio file not found")

// Word is one recognized word with its timing in seconds
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionResult is produced once per recording
type TranscriptionResult struct {
	// Text is the full transcript, trimmed
	Text string `json:"text"`

	// Language reported by the provider
	Language string `json:"language"`

	// Duration in seconds; zero when the provider did not report it
	Duration float64 `json:"duration"`

	// Words in chronological order; may be empty
	Words []Word `json:"words"`
}

// Transcriber is the speech-to-text collaborator
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error)
}

// DomainPrompt primes recognition for Indian English interview answers
const DomainPrompt = "This is an interview answer by an Indian engineering student or professional. " +
	"Common words: implemented, algorithm, experience, responsibilities, achievement, " +
	"leadership, teamwork, project, deadline, challenge, solution, result, internship."

// DomainKeywords is the same vocabulary as DomainPrompt, for keyword-boosting providers
var DomainKeywords = []string{
	"implemented", "algorithm", "experience", "responsibilities", "achievement",
	"leadership", "teamwork", "project", "deadline", "challenge", "solution", "result", "internship",
}
