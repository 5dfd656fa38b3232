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

// OllamaModel represents an Ollama chat client
type OllamaModel struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaModel creates a new Ollama chat client
func NewOllamaModel(opts Options) *OllamaModel {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &OllamaModel{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

// ollamaChatRequest is the request format for Ollama's /api/chat endpoint
type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ollamaChatResponse is the non-streaming response format from Ollama's /api/chat endpoint
type ollamaChatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Name returns "ollama:model".
func (m *OllamaModel) Name() string {
	return "ollama:" + m.model
}

// Complete generates one reply with streaming disabled.
func (m *OllamaModel) Complete(ctx context.Context, system, user string) (string, error) {
	req := ollamaChatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// Health checks if the Ollama service is available and the model is pulled
func (m *OllamaModel) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	wanted := stripModelTag(m.model)
	for _, model := range tagsResp.Models {
		if stripModelTag(model.Name) == wanted {
			return nil
		}
	}

	return fmt.Errorf("model %s not found (run: ollama pull %s)", m.model, m.model)
}

// stripModelTag removes the tag suffix from a model name (e.g., "model:latest" -> "model")
func stripModelTag(modelName string) string {
	if i := strings.IndexByte(modelName, ':'); i >= 0 {
		return modelName[:i]
	}
	return modelName
}
