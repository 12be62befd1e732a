// File path: internal/law/tree.go
package law

import (
	"fmt"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// RootID is the synthetic id anchoring article nodes.
const RootID = "ROOT"

// Tree is a rule-record tree keyed by provision id. Records of class "조"
// hang off the synthetic root; everything else attaches to its parent, or to
// the root when the parent is unknown.
type Tree struct {
	records  map[string]Record
	children map[string][]string
	order    []string
}

// BuildTree assembles records into a tree. Duplicate or missing ids reject
// the whole build; no partial tree is ever returned.
func BuildTree(records []Record) (*Tree, error) {
	byID := make(map[string]Record, len(records))
	order := make([]string, 0, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("law: record %d: %w", i, ErrMissingID)
		}
		if _, exists := byID[rec.ID]; exists {
			return nil, fmt.Errorf("law: id %q: %w", rec.ID, ErrDuplicateID)
		}
		byID[rec.ID] = rec.Clone()
		order = append(order, rec.ID)
	}

	children := make(map[string][]string)
	for _, id := range order {
		rec := byID[id]
		if rec.Class == "조" {
			children[RootID] = append(children[RootID], id)
			continue
		}
		parentID := rec.Parent
		if _, ok := byID[parentID]; !ok {
			common.Logger().Warn("law: missing parent, attached to root", "node", id, "parent", parentID)
			parentID = RootID
		}
		children[parentID] = append(children[parentID], id)
	}

	return &Tree{records: byID, children: children, order: order}, nil
}

// Node returns the record with the given id.
func (t *Tree) Node(id string) (Record, bool) {
	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// RootIDs lists the ids attached directly to the root, in attach order.
func (t *Tree) RootIDs() []string {
	return append([]string(nil), t.children[RootID]...)
}

// ChildIDs lists a node's child ids in attach order.
func (t *Tree) ChildIDs(id string) []string {
	return append([]string(nil), t.children[id]...)
}

// Len reports the number of records in the tree, excluding the root.
func (t *Tree) Len() int {
	return len(t.order)
}

// WalkPreOrder visits every node depth-first starting from the root's
// children. Returning an error from fn stops the walk.
func (t *Tree) WalkPreOrder(fn func(rec Record, depth int) error) error {
	var visit func(id string, depth int) error
	visit = func(id string, depth int) error {
		if err := fn(t.records[id], depth); err != nil {
			return err
		}
		for _, childID := range t.children[id] {
			if err := visit(childID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range t.children[RootID] {
		if err := visit(id, 0); err != nil {
			return err
		}
	}
	return nil
}

// Render draws the tree layout with box connectors, root label bare.
func (t *Tree) Render() string {
	lines := []string{"Tree layout:"}

	var render func(id, prefix string, isLast bool)
	render = func(id, prefix string, isLast bool) {
		connector := "└─ "
		if !isLast {
			connector = "├─ "
		}
		if prefix != "" {
			lines = append(lines, prefix+connector+id)
		} else {
			lines = append(lines, id)
		}
		childPrefix := prefix + "   "
		if !isLast {
			childPrefix = prefix + "│  "
		}
		kids := t.children[id]
		for i, childID := range kids {
			render(childID, childPrefix, i == len(kids)-1)
		}
	}

	render(RootID, "", true)
	return strings.Join(lines, "\n")
}
