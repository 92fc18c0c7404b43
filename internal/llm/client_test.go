package llm

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowenci/interview-coach/internal/resilience"
)

func TestIsRetryableAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400, Message: "invalid"}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, false},
		{"wrapped request error", fmt.Errorf("call: %w", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}), true},
		{"network", errors.New("dial tcp: connection refused"), true},
		{"circuit open", resilience.ErrCircuitOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableAPIError(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
