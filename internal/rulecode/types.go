// File path: internal/rulecode/types.go
package rulecode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Standard artifact names inside a rule template directory.
const (
	RuleCodeFile  = "law_code.json"
	VariablesFile = "variables.json"
	ProgramFile   = "program.json"
	ListingFile   = "listing.txt"
	MetadataFile  = "metadata.json"
)

// ErrMissingVarName rejects compilation of a rule node without a var_name.
var ErrMissingVarName = errors.New("node missing var_name")

// Variable is one checklist entry: a business-fact flag and the question
// that resolves it.
type Variable struct {
	Name     string `json:"variable"`
	Question string `json:"question"`
}

// ChecklistValue is a checklist variable with its resolved seed value.
type ChecklistValue struct {
	Name     string `json:"variable"`
	Question string `json:"question"`
	Value    bool   `json:"value"`
}

// Unit is the executable form of one rule node.
type Unit struct {
	ID        string   `json:"id"`
	VarName   string   `json:"var_name"`
	Condition string   `json:"condition,omitempty"`
	Action    []string `json:"action,omitempty"`
	Legal     string   `json:"legal,omitempty"`
	Calls     []string `json:"calls,omitempty"`
}

// Program is the machine-executable rule artifact. Checklist values seed the
// boolean environment; LawState names seed {'condition': false, 'legal': true}
// records; Roots are invoked in order by the driver.
type Program struct {
	CaseID    string           `json:"case_id"`
	Checklist []ChecklistValue `json:"checklist"`
	LawState  []string         `json:"law_state"`
	Roots     []string         `json:"roots"`
	Units     []Unit           `json:"units"`
}

// MetadataEntry maps one rule node to the 1-based listing lines of its
// condition, first action line, and legal check. Absent parts stay null.
type MetadataEntry struct {
	ID        string `json:"id"`
	Condition *int   `json:"condition_pseudocode"`
	Action    *int   `json:"action_pseudocode"`
	Legal     *int   `json:"legal_pseudocode"`
}

// Artifact bundles one compilation's outputs.
type Artifact struct {
	Program  *Program
	Listing  string
	Metadata []MetadataEntry
}

// WithCase returns a deep copy of the program bound to a case: CaseID is
// replaced and checklist seeds take the resolved values, defaulting to false.
func (p *Program) WithCase(caseID string, values map[string]bool) *Program {
	out := &Program{
		CaseID:    caseID,
		Checklist: make([]ChecklistValue, len(p.Checklist)),
		LawState:  append([]string(nil), p.LawState...),
		Roots:     append([]string(nil), p.Roots...),
		Units:     make([]Unit, len(p.Units)),
	}
	for i, entry := range p.Checklist {
		entry.Value = values[entry.Name]
		out.Checklist[i] = entry
	}
	for i, unit := range p.Units {
		unit.Action = append([]string(nil), p.Units[i].Action...)
		unit.Calls = append([]string(nil), p.Units[i].Calls...)
		out.Units[i] = unit
	}
	return out
}

// SafeCaseID makes a case id usable as a file name component.
func SafeCaseID(caseID string) string {
	out := strings.ReplaceAll(caseID, "/", "_")
	return strings.ReplaceAll(out, "\\", "_")
}

// ReadVariables loads a variables.json checklist definition.
func ReadVariables(path string) ([]Variable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulecode: read variables: %w", err)
	}
	var variables []Variable
	if err := json.Unmarshal(data, &variables); err != nil {
		return nil, fmt.Errorf("rulecode: parse %s: %w", path, err)
	}
	return variables, nil
}

// ReadProgram loads a compiled or case-bound program artifact.
func ReadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulecode: read program: %w", err)
	}
	var program Program
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, fmt.Errorf("rulecode: parse %s: %w", path, err)
	}
	return &program, nil
}

// WriteJSON writes v as indented JSON without HTML escaping, atomically.
func WriteJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("rulecode: encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("rulecode: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("rulecode: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rulecode: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rulecode: finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}
