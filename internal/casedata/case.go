// File path: internal/casedata/case.go
package casedata

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"strings"
)

const (
	// DefaultSampleSeed keeps evaluation runs comparable across invocations.
	DefaultSampleSeed int64 = 42
	DefaultSampleSize       = 20
)

// ViolatedArticle identifies one provision a ruling found the business
// violated. VarName carries the law-tree variable the provision maps to;
// provisions of other statutes keep an empty VarName.
type ViolatedArticle struct {
	Law     string `json:"law,omitempty"`
	ID      string `json:"id,omitempty"`
	VarName string `json:"var_name,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Case is one adjudicated privacy ruling distilled to the fields the
// pipeline consumes.
type Case struct {
	CaseID           string            `json:"case_id"`
	Business         string            `json:"business"`
	ViolatedArticles []ViolatedArticle `json:"violated_articles"`
	SourcePath       string            `json:"source_path"`
	Content          string            `json:"content"`
}

// ChecklistContext renders the case the way the checklist resolver consumes
// it: labeled header fields followed by the full document content.
func (c Case) ChecklistContext() string {
	articles := c.ViolatedArticles
	if articles == nil {
		articles = []ViolatedArticle{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	encoded := "[]"
	if err := enc.Encode(articles); err == nil {
		encoded = strings.TrimSuffix(buf.String(), "\n")
	}
	parts := []string{
		"case_id: " + c.CaseID,
		"business: " + c.Business,
		"violated_articles: " + encoded,
		"source_path: " + c.SourcePath,
		"content:\n" + c.Content,
	}
	return strings.Join(parts, "\n")
}

// Sample draws up to n cases without replacement from a fixed-seed source so
// repeated runs select the same evaluation set. When n covers the whole
// corpus the cases come back in store order.
func Sample(cases []Case, n int, seed int64) []Case {
	if n <= 0 {
		n = DefaultSampleSize
	}
	if n >= len(cases) {
		out := make([]Case, len(cases))
		copy(out, cases)
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]Case, 0, n)
	for _, idx := range rng.Perm(len(cases))[:n] {
		out = append(out, cases[idx])
	}
	return out
}
