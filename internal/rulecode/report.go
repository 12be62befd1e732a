// File path: internal/rulecode/report.go
package rulecode

import (
	"path/filepath"
	"strings"
)

// RenderReport formats one execution's results and errors for the case
// report file. Empty sections render a single "None" line.
func RenderReport(caseID string, outcome *Outcome) string {
	lines := []string{"CASE_ID: " + caseID, "", "Results:"}
	if len(outcome.Results) > 0 {
		lines = append(lines, outcome.Results...)
	} else {
		lines = append(lines, "None")
	}
	lines = append(lines, "", "Errors:")
	if len(outcome.Errors) > 0 {
		lines = append(lines, outcome.Errors...)
	} else {
		lines = append(lines, "None")
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteReport writes the case report next to the program file, named after
// the sanitized case id.
func WriteReport(dir, caseID string, outcome *Outcome) (string, error) {
	path := filepath.Join(dir, SafeCaseID(caseID)+".txt")
	if err := writeFileAtomic(path, []byte(RenderReport(caseID, outcome))); err != nil {
		return "", err
	}
	return path, nil
}
