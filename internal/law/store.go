// File path: internal/law/store.go
package law

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// StatuteName is the Korean short title of the Personal Information
// Protection Act. References and case articles citing other statutes are
// matched against it.
const StatuteName = "개인정보보호법"

var articleIDPattern = regexp.MustCompile(`(제\d+조(?:의\d+)?)`)

// ArticlePrefix reduces a provision id such as "제26조 제7항" to its article
// id "제26조". Ids without an article component come back trimmed unchanged.
func ArticlePrefix(raw string) string {
	if raw == "" {
		return ""
	}
	if m := articleIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return strings.TrimSpace(raw)
}

// Store loads the statute dataset once on first use and serves indexed
// lookups over it. All returned records are copies.
type Store struct {
	path string

	once     sync.Once
	loadErr  error
	records  []Record
	byID     map[string]int
	children map[string][]string
}

// NewStore returns a store reading the dataset at path. Loading is deferred
// until the first access.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) ensure() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("law: read dataset: %w", err)
			return
		}
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			s.loadErr = fmt.Errorf("law: parse dataset %s: %w", s.path, err)
			return
		}
		byID := make(map[string]int, len(records))
		children := make(map[string][]string)
		for i, rec := range records {
			if rec.ID == "" {
				s.loadErr = fmt.Errorf("law: dataset record %d: %w", i, ErrMissingID)
				return
			}
			byID[rec.ID] = i
		}
		for _, rec := range records {
			if rec.Parent != "" {
				children[rec.Parent] = append(children[rec.Parent], rec.ID)
			}
		}
		s.records = records
		s.byID = byID
		s.children = children
		common.Logger().Debug("law: dataset loaded", "path", s.path, "records", len(records))
	})
	return s.loadErr
}

// Records returns a copy of every dataset record in source order.
func (s *Store) Records() ([]Record, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	out := make([]Record, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Lookup resolves one provision by id.
func (s *Store) Lookup(id string) (Record, error) {
	if err := s.ensure(); err != nil {
		return Record{}, err
	}
	idx, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("law: id %q: %w", id, ErrNotFound)
	}
	return s.records[idx].Clone(), nil
}

// Subtree returns the provision and all its descendants pre-order, children
// in source order.
func (s *Store) Subtree(id string) ([]Record, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	if _, ok := s.byID[id]; !ok {
		return nil, fmt.Errorf("law: id %q: %w", id, ErrNotFound)
	}
	var out []Record
	var visit func(string)
	visit = func(nodeID string) {
		out = append(out, s.records[s.byID[nodeID]].Clone())
		for _, childID := range s.children[nodeID] {
			visit(childID)
		}
	}
	visit(id)
	return out, nil
}

// ArticleRecords returns the subtree of an article ("조") node. Asking for a
// non-article id fails with ErrInvalidNode.
func (s *Store) ArticleRecords(articleID string) ([]Record, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	idx, ok := s.byID[articleID]
	if !ok {
		return nil, fmt.Errorf("law: article %q: %w", articleID, ErrNotFound)
	}
	if s.records[idx].Class != "조" {
		return nil, fmt.Errorf("law: %q has class %q: %w", articleID, s.records[idx].Class, ErrInvalidNode)
	}
	return s.Subtree(articleID)
}

// FormattedLine renders the provision with the given id as one prompt line.
func (s *Store) FormattedLine(id string) (string, error) {
	rec, err := s.Lookup(id)
	if err != nil {
		return "", err
	}
	return rec.FormattedLine(), nil
}

// ArticleText walks up from the provision to its enclosing article and
// renders the whole article subtree, one formatted line per provision.
func (s *Store) ArticleText(id string) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	idx, ok := s.byID[id]
	if !ok {
		return "", fmt.Errorf("law: id %q: %w", id, ErrNotFound)
	}
	current := s.records[idx]
	for current.Class != "조" {
		if current.Parent == "" {
			return "", fmt.Errorf("law: no article above %q: %w", id, ErrMissingParent)
		}
		parentIdx, ok := s.byID[current.Parent]
		if !ok {
			return "", fmt.Errorf("law: parent %q of %q: %w", current.Parent, current.ID, ErrMissingParent)
		}
		current = s.records[parentIdx]
	}
	subtree, err := s.Subtree(current.ID)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(subtree))
	for i, rec := range subtree {
		lines[i] = rec.FormattedLine()
	}
	return strings.Join(lines, "\n"), nil
}

// ReferencedText renders the full text of every statute article the provision
// references, deduplicated by article and excluding the provision's own
// article. References that do not resolve are skipped.
func (s *Store) ReferencedText(id string) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	idx, ok := s.byID[id]
	if !ok {
		return "", fmt.Errorf("law: id %q: %w", id, ErrNotFound)
	}
	rec := s.records[idx]

	seen := make(map[string]bool)
	var refIDs []string
	for _, ref := range rec.References {
		if ref.Law != StatuteName {
			continue
		}
		refID := ArticlePrefix(strings.TrimSpace(ref.ID))
		if refID == "" || seen[refID] {
			continue
		}
		seen[refID] = true
		refIDs = append(refIDs, refID)
	}

	base := ArticlePrefix(id)
	var lines []string
	for _, refID := range refIDs {
		if refID == base {
			continue
		}
		text, err := s.ArticleText(refID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMissingParent) {
				common.Logger().Debug("law: unresolved reference skipped", "from", id, "ref", refID)
				continue
			}
			return "", err
		}
		if text == "" {
			continue
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return strings.Join(lines, "\n"), nil
}
