package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIModel talks to any OpenAI-compatible /chat/completions endpoint (Groq, OpenAI, LM Studio).
type OpenAIModel struct {
	provider string
	baseURL  string
	apiKey   string
	model    string
	client   *http.Client
}

// NewOpenAIModel creates a new OpenAI-compatible chat client
func NewOpenAIModel(provider string, opts Options) *OpenAIModel {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &OpenAIModel{
		provider: provider,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		model:    opts.Model,
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the request format for the /chat/completions endpoint
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatCompletionResponse is the response format from the /chat/completions endpoint
type chatCompletionResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
}

// Name returns "provider:model".
func (m *OpenAIModel) Name() string {
	return m.provider + ":" + m.model
}

// Complete generates one reply; no retry, no streaming.
func (m *OpenAIModel) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatCompletionRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s error (status %d): %s", m.provider, resp.StatusCode, string(bodyBytes))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}
