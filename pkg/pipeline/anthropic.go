package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicLLMClient calls the Anthropic Messages API. The SDK reads the
// API key from ANTHROPIC_API_KEY.
type AnthropicLLMClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

// NewAnthropicLLMClient creates an Anthropic-backed LLMClient. log may be
// nil to disable per-call logging.
func NewAnthropicLLMClient(log *slog.Logger, model anthropic.Model, maxTokens int64) *AnthropicLLMClient {
	return &AnthropicLLMClient{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Complete sends one system+user exchange and returns the first text
// block of the reply.
func (c *AnthropicLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Type: "text", Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		if c.log != nil {
			c.log.Error("anthropic: request failed", "model", c.model, "duration", time.Since(start), "error", err)
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if c.log != nil {
		c.log.Debug("anthropic: request completed",
			"model", c.model,
			"duration", time.Since(start),
			"stopReason", msg.StopReason,
			"promptLen", len(userPrompt))
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
