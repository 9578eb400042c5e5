package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps the hosted OpenAI API as the secondary, smaller
// generative model. It is only constructed when an API key is configured;
// the answer synthesizer skips the secondary tier otherwise.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a secondary-model client.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// ModelName returns the configured model name.
func (c *OpenAIClient) ModelName() string {
	return c.model
}

// Complete sends a single-prompt completion request. Same shape as the
// primary client so the two are interchangeable behind the answer
// synthesizer's strategy interface.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, params CompletionParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai completion: %v", ErrModel, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrModel)
	}

	return resp.Choices[0].Message.Content, nil
}
