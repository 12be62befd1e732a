// File path: internal/llm/providers/openai.go
package providers

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// OpenAIProvider serves gpt-* models through the chat completions API.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider wraps an authenticated client.
func NewOpenAIProvider(client *openai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Chat(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	req := openai.ChatCompletionRequest{Model: model}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	// The gpt-4.1 family answers in JSON mode; reasoning models reject the
	// response_format parameter.
	if params.JSONObject || strings.HasPrefix(model, "gpt-4") {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = params.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		common.Logger().Error("llm: openai call failed", "model", model, "error", err)
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	common.Logger().Debug("llm: openai response", "model", model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
