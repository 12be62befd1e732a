// File path: internal/evaluation/normalize.go
package evaluation

import (
	"regexp"
	"strings"
)

const predictionPrefix = "Non-compliant law variables:"

var varNamePattern = regexp.MustCompile(`^(LAW_[A-Z0-9]+(?:_[A-Z0-9]+)?)`)

// NormalizeVarName reduces any rendering of a law variable, including
// subscripted forms such as "LAW_A26['legal']" and lowercase report text, to
// the canonical name used for scoring.
func NormalizeVarName(raw string) string {
	stripped := strings.TrimSpace(raw)
	if stripped == "" {
		return ""
	}
	if idx := strings.Index(stripped, "["); idx != -1 {
		stripped = strings.TrimSpace(stripped[:idx])
	}
	if m := varNamePattern.FindStringSubmatch(stripped); m != nil {
		return m[1]
	}
	tokens := strings.Split(stripped, "_")
	parts := make([]string, 0, len(tokens))
	for i, token := range tokens {
		upper := strings.ToUpper(token)
		if i > 0 && (strings.HasPrefix(upper, "P") || strings.HasPrefix(upper, "S")) {
			break
		}
		parts = append(parts, upper)
	}
	return strings.Join(parts, "_")
}

// parsePredictions extracts the predicted violations from a case report. A
// payload that is empty or reads "no ..." means the run predicted nothing.
func parsePredictions(lines []string) []string {
	for _, raw := range lines {
		stripped := strings.TrimSpace(raw)
		if !strings.HasPrefix(stripped, predictionPrefix) {
			continue
		}
		payload := strings.TrimSpace(stripped[len(predictionPrefix):])
		if payload == "" || strings.HasPrefix(strings.ToLower(payload), "no ") {
			return nil
		}
		seen := make(map[string]struct{})
		var names []string
		for _, item := range strings.Split(payload, ",") {
			norm := NormalizeVarName(item)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			names = append(names, norm)
		}
		return names
	}
	return nil
}

// stripEvaluationSection drops a previously appended summary so re-running
// the evaluation never stacks sections.
func stripEvaluationSection(lines []string) []string {
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "Evaluation Summary:") {
			return lines[:i]
		}
	}
	return lines
}

func formatArticleList(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func splitReportLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
