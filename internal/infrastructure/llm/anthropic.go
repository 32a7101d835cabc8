package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mcbuckeye/regulatoryradar/internal/config"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

// AnthropicClient implements ports.TextGenerator against the Anthropic
// messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration with a bounded
// per-call timeout.
func NewAnthropicClient(cfg config.AnthropicConfig) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	return &AnthropicClient{
		client: &client,
		model:  anthropic.Model(cfg.Model),
	}
}

// Generate sends one prompt and returns the first text block.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}
