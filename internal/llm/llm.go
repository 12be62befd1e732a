// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/common/telemetry"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm/providers"
)

type Message = providers.Message

type Params = providers.Params

type Provider = providers.Provider

// ErrUnsupportedModel reports a model name no configured provider serves.
var ErrUnsupportedModel = errors.New("unsupported model")

const (
	maxAttempts    = 3
	backoffPerStep = 2 * time.Second
)

// Mux routes chat calls to a provider by model name and retries transient
// failures with a linear backoff.
type Mux struct {
	openai    Provider
	anthropic Provider
	local     Provider
	backoff   time.Duration
}

// NewMux wires providers from the environment. Providers whose credentials
// are absent stay unconfigured; asking for their models fails fast.
func NewMux() *Mux {
	logger := common.Logger()
	mux := &Mux{}
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		mux.openai = providers.NewOpenAIProvider(openai.NewClient(apiKey))
		logger.Debug("llm: openai provider configured")
	}
	if apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); apiKey != "" {
		mux.anthropic = providers.NewAnthropicProvider(apiKey)
		logger.Debug("llm: anthropic provider configured")
	}
	host := strings.TrimSpace(os.Getenv("AUDITOR_LOCAL_LLM_ADDR"))
	if host == "" {
		host = "localhost:8000"
	}
	mux.local = providers.NewLocalProvider(host, strings.TrimSpace(os.Getenv("AUDITOR_LOCAL_LLM_MODEL")))
	return mux
}

func (m *Mux) route(model string) (Provider, error) {
	switch {
	case strings.HasPrefix(model, "gpt-"):
		if m.openai == nil {
			return nil, fmt.Errorf("llm: model %s needs OPENAI_API_KEY: %w", model, ErrUnsupportedModel)
		}
		return m.openai, nil
	case strings.HasPrefix(model, "claude-"):
		if m.anthropic == nil {
			return nil, fmt.Errorf("llm: model %s needs ANTHROPIC_API_KEY: %w", model, ErrUnsupportedModel)
		}
		return m.anthropic, nil
	case model == "local":
		return m.local, nil
	default:
		return nil, fmt.Errorf("llm: model %q: %w", model, ErrUnsupportedModel)
	}
}

// Chat sends a system and user prompt to the model, retrying up to three
// attempts with a linearly growing backoff.
func (m *Mux) Chat(ctx context.Context, model, sysPrompt, usrPrompt string) (string, error) {
	return m.ChatParams(ctx, model, sysPrompt, usrPrompt, Params{})
}

// ChatParams is Chat with explicit call parameters.
func (m *Mux) ChatParams(ctx context.Context, model, sysPrompt, usrPrompt string, params Params) (string, error) {
	provider, err := m.route(model)
	if err != nil {
		return "", err
	}
	messages := []Message{
		{Role: "system", Content: sysPrompt},
		{Role: "user", Content: usrPrompt},
	}

	logger := common.Logger()
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		spanCtx, end := telemetry.StartSpan(ctx, "llm.chat")
		content, err := provider.Chat(spanCtx, model, messages, params)
		end("model", model, "attempt", attempt)
		if err == nil {
			telemetry.RecordLLMCall(model, attempt-1, time.Since(start), false)
			return content, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		step := m.backoff
		if step <= 0 {
			step = backoffPerStep
		}
		wait := step * time.Duration(attempt)
		logger.Warn("llm: call failed, retrying", "model", model, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			telemetry.RecordLLMCall(model, attempt-1, time.Since(start), true)
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	telemetry.RecordLLMCall(model, maxAttempts-1, time.Since(start), true)
	return "", fmt.Errorf("llm: %s failed after %d attempts: %w", model, maxAttempts, lastErr)
}
