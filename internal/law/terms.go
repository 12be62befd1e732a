// File path: internal/law/terms.go
package law

import (
	"regexp"
	"strings"
)

// Matches the statutory definition form (이하 "term"이라 한다), including the
// curly-quote variants used across the corpus.
var definedTermPattern = regexp.MustCompile(`([^\n]*?)\(이하[ \n]*[“"](.*?)[”"’‘][ \n]*이라 한다\)`)

// DefinedTerm is a shorthand the statute introduces for a longer phrase.
type DefinedTerm struct {
	ProvisionID string `json:"id"`
	Term        string `json:"defined_term"`
	FullTerm    string `json:"full_term"`
}

// DefinedTerms scans every provision's content for statutory definitions.
func (s *Store) DefinedTerms() ([]DefinedTerm, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	var out []DefinedTerm
	for _, rec := range s.records {
		if rec.Content == "" {
			continue
		}
		for _, m := range definedTermPattern.FindAllStringSubmatch(rec.Content, -1) {
			full := strings.TrimSpace(m[1])
			full = strings.ReplaceAll(full, "(", "")
			full = strings.ReplaceAll(full, ")", "")
			out = append(out, DefinedTerm{
				ProvisionID: rec.ID,
				Term:        strings.TrimSpace(m[2]),
				FullTerm:    full,
			})
		}
	}
	return out, nil
}
