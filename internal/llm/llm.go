// Package llm provides single-shot chat completions against the supported model providers.
package llm

import (
	"context"
	"fmt"
	"time"
)

// ChatModel is the interface for chat completion providers (Groq, OpenAI, Anthropic, Ollama, ...)
type ChatModel interface {
	// Complete sends one system instruction and one user message and returns the reply text.
	Complete(ctx context.Context, system, user string) (string, error)

	// Name identifies the provider and model, for logs.
	Name() string
}

// HealthChecker is implemented by models that can probe their service before the first call.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures a provider client. Empty fields use the provider defaults.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

const defaultTimeout = 60 * time.Second

var (
	_ ChatModel = (*OpenAIModel)(nil)
	_ ChatModel = (*OllamaModel)(nil)
	_ ChatModel = (*AnthropicModel)(nil)

	_ HealthChecker = (*OllamaModel)(nil)
)

// NewChatModel creates a chat model client for the provider.
// Supported providers: "groq", "openai", "lmstudio", "anthropic", "ollama"
func NewChatModel(provider string, opts Options) (ChatModel, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL(provider)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(provider)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	switch provider {
	case "groq", "openai", "lmstudio":
		return NewOpenAIModel(provider, opts), nil
	case "anthropic":
		return NewAnthropicModel(opts), nil
	case "ollama":
		return NewOllamaModel(opts), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: groq, openai, lmstudio, anthropic, ollama)", provider)
	}
}

// DefaultURL returns the default base URL for a given provider
func DefaultURL(provider string) string {
	switch provider {
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "openai":
		return "https://api.openai.com/v1"
	case "lmstudio":
		return "http://localhost:1234/v1"
	case "anthropic":
		return "https://api.anthropic.com"
	case "ollama":
		return "http://localhost:11434"
	default:
		return ""
	}
}

// DefaultModel returns the default model name for a given provider
func DefaultModel(provider string) string {
	switch provider {
	case "groq":
		return "llama-3.3-70b-versatile"
	case "openai":
		return "gpt-4o-mini"
	case "lmstudio":
		return "qwen2.5-7b-instruct"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "ollama":
		return "llama3.1"
	default:
		return ""
	}
}
