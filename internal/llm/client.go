// Package llm wraps the chat-completion collaborator shared by STAR analysis,
// coaching tips, interviewer turns and session feedback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowenci/interview-coach/internal/config"
	"github.com/flowenci/interview-coach/internal/observability"
	"github.com/flowenci/interview-coach/internal/resilience"
)

// Conversation roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat transcript
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an ordered message list plus sampling parameters
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// CallSite labels metrics and logs (star, tips, interviewer_turn, session_feedback)
	CallSite string
	// SingleAttempt disables transport retries for this call
	SingleAttempt bool
}

// ChatClient returns a single text completion
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// OpenAIClient implements ChatClient using the OpenAI chat completions API
type OpenAIClient struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
}

// NewOpenAI builds the API client shared by chat, transcription and speech
func NewOpenAI(cfg *config.Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// NewOpenAIClient creates a chat client guarded by a circuit breaker
func NewOpenAIClient(api *openai.Client, cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		api:     api,
		model:   cfg.OpenAIModel,
		timeout: time.Duration(cfg.LLMTimeout) * time.Second,
		breaker: resilience.NewCircuitBreaker(
			"openai_chat",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

// Complete sends one chat completion and returns the first choice, trimmed
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	creq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	start := time.Now()
	var content string
	retry := c.retry
	if req.SingleAttempt {
		single := *c.retry
		single.MaxAttempts = 1
		retry = &single
	}
	err := resilience.Retry(ctx, func() error {
		return c.breaker.Call(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			resp, err := c.api.CreateChatCompletion(callCtx, creq)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("chat completion returned no choices")
			}
			content = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		})
	}, retry, IsRetryableAPIError)
	observability.ObserveExternalCall("llm", req.CallSite, start, err)
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", req.CallSite, err)
	}
	return content, nil
}

// Healthy reports an error while the chat circuit is open
func (c *OpenAIClient) Healthy(ctx context.Context) error {
	if c.breaker.GetState() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return nil
}

// IsRetryableAPIError retries rate limits, server errors and transient network failures
func IsRetryableAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return resilience.IsRetryableNetworkError(err)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
