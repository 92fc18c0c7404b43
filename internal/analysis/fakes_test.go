package analysis

import (
	"context"
	"sync"

	"github.com/flowenci/interview-coach/internal/llm"
	"github.com/flowenci/interview-coach/internal/stt"
)

// fakeChat answers by call site
type fakeChat struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []llm.ChatRequest
}

func (f *fakeChat) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.errs[req.CallSite]; err != nil {
		return "", err
	}
	return f.responses[req.CallSite], nil
}

func (f *fakeChat) callCount(site string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.CallSite == site {
			n++
		}
	}
	return n
}

type fakeTranscriber struct {
	result *stt.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*stt.TranscriptionResult, error) {
	return f.result, f.err
}
