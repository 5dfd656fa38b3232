package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMaxTokens bounds the reply; a 30 + 3x10 keyword JSON object fits comfortably.
const anthropicMaxTokens = 2048

// AnthropicModel calls the Anthropic Messages API through the official SDK.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

// NewAnthropicModel creates a Messages API client. SDK-level retries are disabled.
func NewAnthropicModel(opts Options) *AnthropicModel {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.Timeout),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicModel{
		client: anthropic.NewClient(reqOpts...),
		model:  opts.Model,
	}
}

// Name returns "anthropic:model".
func (m *AnthropicModel) Name() string {
	return "anthropic:" + m.model
}

// Complete sends a single Messages request and concatenates the text blocks of the reply.
func (m *AnthropicModel) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("no text content returned")
	}

	return reply.String(), nil
}
