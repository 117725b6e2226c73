package chat

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/errors"
)

// chatTimeout bounds a single chat completion call.
const chatTimeout = 120 * time.Second

// LLMClient produces an answer from an assembled message sequence.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Close() error
}

// OpenAIClient answers through the OpenAI chat completions API. Transient
// API failures are retried with exponential backoff.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	retryCfg    errors.RetryConfig
}

var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a chat client from the LLM configuration. The API
// key is read from OPENAI_API_KEY when not given.
func NewOpenAIClient(apiKey string, cfg *config.LLMConfig) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retryCfg:    errors.DefaultRetryConfig(),
	}, nil
}

// Chat sends the messages and returns the first choice's content.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	return errors.RetryWithResult(ctx, c.retryCfg, func() (string, error) {
		reqCtx, cancel := context.WithTimeout(ctx, chatTimeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    converted,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeLLMAPI, fmt.Errorf("chat completion failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Close releases resources.
func (c *OpenAIClient) Close() error {
	return nil
}
