// File path: internal/law/record.go
package law

import "strings"

// Reference points at another provision, possibly in a different statute.
type Reference struct {
	Law string `json:"law"`
	ID  string `json:"id"`
}

// Pseudocode carries the generated rule expressions for one provision.
// Condition gates applicability, Legal decides compliance (false means
// violation), Action mutates other provisions' state when the condition holds.
type Pseudocode struct {
	Condition string `json:"condition_pseudocode"`
	Legal     string `json:"legal_pseudocode"`
	Action    string `json:"action_pseudocode"`
}

// Record is one provision of the statute dataset. Base law records carry no
// pseudocode; generated rule records do.
type Record struct {
	ID         string      `json:"id"`
	Class      string      `json:"class"`
	Parent     string      `json:"parent,omitempty"`
	VarName    string      `json:"var_name,omitempty"`
	Title      string      `json:"title,omitempty"`
	Content    string      `json:"content,omitempty"`
	References []Reference `json:"reference,omitempty"`
	Pseudocode *Pseudocode `json:"pseudocode,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate cached dataset state.
func (r Record) Clone() Record {
	out := r
	if len(r.References) > 0 {
		out.References = make([]Reference, len(r.References))
		copy(out.References, r.References)
	}
	if r.Pseudocode != nil {
		pc := *r.Pseudocode
		out.Pseudocode = &pc
	}
	return out
}

// FormattedLine renders a provision as a single prompt line:
// "<id> [<var_name>]:" plus the title in parentheses and the content when set.
func (r Record) FormattedLine() string {
	parts := []string{r.ID + " [" + strings.TrimSpace(r.VarName) + "]:"}
	if title := strings.TrimSpace(r.Title); title != "" {
		parts = append(parts, "("+title+")")
	}
	if content := strings.TrimSpace(r.Content); content != "" {
		parts = append(parts, content)
	}
	return strings.Join(parts, " ")
}
