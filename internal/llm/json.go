// File path: internal/llm/json.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// ErrMalformedResponse reports model output that stayed unparseable even
// after the repair pass.
var ErrMalformedResponse = errors.New("malformed model response")

const defaultRepairModel = "gpt-4.1-nano"

const repairSystemPrompt = "다음 문자열에서 유효한 JSON만 추출하시오. " +
	"출력은 반드시 유효한 JSON이어야 하며, " +
	"만약 리스트([])라면 리스트의 첫 번째 객체만 반환하십시오."

// stripFence removes a leading ```json code fence and its closing ```.
func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```json") {
		return trimmed
	}
	trimmed = strings.TrimSpace(trimmed[len("```json"):])
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len("```")])
	}
	return trimmed
}

// normalizeObject parses content into canonical object JSON. A list payload
// collapses to its first element; an empty list becomes an empty object.
func normalizeObject(content string) ([]byte, error) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return nil, err
	}
	if list, ok := parsed.([]interface{}); ok {
		if len(list) == 0 {
			parsed = map[string]interface{}{}
		} else {
			parsed = list[0]
		}
	}
	return json.Marshal(parsed)
}

// DecodeObject parses a model answer into v, tolerating code fences and
// list-wrapped objects. No model call is made.
func DecodeObject(content string, v interface{}) error {
	data, err := normalizeObject(content)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ParseObject decodes a model answer into v, falling back to one repair
// round through a small JSON-mode model before giving up.
func (m *Mux) ParseObject(ctx context.Context, content string, v interface{}) error {
	if err := DecodeObject(content, v); err == nil {
		return nil
	}
	repairModel := strings.TrimSpace(os.Getenv("AUDITOR_JSON_REPAIR_MODEL"))
	if repairModel == "" {
		repairModel = defaultRepairModel
	}
	common.Logger().Warn("llm: response not valid JSON, attempting repair", "repair_model", repairModel)
	repaired, err := m.Chat(ctx, repairModel, repairSystemPrompt, "[입력 문자열]\n"+strings.TrimSpace(content))
	if err != nil {
		return fmt.Errorf("llm: repair call failed: %v: %w", err, ErrMalformedResponse)
	}
	if err := DecodeObject(repaired, v); err != nil {
		return fmt.Errorf("llm: repair output unparseable: %v: %w", err, ErrMalformedResponse)
	}
	return nil
}
