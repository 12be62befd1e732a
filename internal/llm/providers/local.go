// File path: internal/llm/providers/local.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// DefaultLocalModel is the model name a self-hosted vLLM endpoint serves.
const DefaultLocalModel = "Qwen/Qwen3-30B-A3B"

const localMaxTokens = 3096

// LocalProvider talks to an OpenAI-compatible chat endpoint on a self-hosted
// inference server. Thinking is disabled through chat_template_kwargs, which
// the hosted SDKs do not expose.
type LocalProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewLocalProvider targets host (host:port or a full URL) with the given
// model name, falling back to DefaultLocalModel.
func NewLocalProvider(host, model string) *LocalProvider {
	if model == "" {
		model = DefaultLocalModel
	}
	base := strings.TrimRight(host, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &LocalProvider{
		baseURL:    base,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *LocalProvider) Name() string { return "local" }

type localChatRequest struct {
	Model              string                 `json:"model"`
	Messages           []Message              `json:"messages"`
	ChatTemplateKwargs map[string]interface{} `json:"chat_template_kwargs,omitempty"`
	MaxTokens          int                    `json:"max_tokens"`
	Temperature        *float32               `json:"temperature,omitempty"`
}

type localChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *LocalProvider) Chat(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = localMaxTokens
	}
	reqBody := localChatRequest{
		Model:              p.model,
		Messages:           messages,
		ChatTemplateKwargs: map[string]interface{}{"enable_thinking": false},
		MaxTokens:          maxTokens,
		Temperature:        params.Temperature,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("local chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("local chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer EMPTY")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		common.Logger().Error("llm: local call failed", "endpoint", p.baseURL, "error", err)
		return "", fmt.Errorf("local chat: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("local chat: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local chat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed localChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("local chat: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("local chat: no choices returned")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
