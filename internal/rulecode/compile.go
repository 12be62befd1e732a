// File path: internal/rulecode/compile.go
package rulecode

import (
	"fmt"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/law"
)

// DefaultCaseID marks a compiled template not yet bound to a case.
const DefaultCaseID = "Default"

type listingBuilder struct {
	lines []string
}

// add appends one listing line and returns its 1-based line number.
func (b *listingBuilder) add(text string) int {
	b.lines = append(b.lines, text)
	return len(b.lines)
}

func (b *listingBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// Compile lowers a rule tree into an executable program, a traceable text
// listing, and per-node metadata pointing at the listing lines. Checklist
// variables seed false; law state records come from the full statute dataset
// deduplicated by var_name in source order. Any tree node without a var_name
// fails the whole compilation.
func Compile(tree *law.Tree, variables []Variable, fullLaw []law.Record) (*Artifact, error) {
	program := &Program{CaseID: DefaultCaseID}
	listing := &listingBuilder{}
	var metadata []MetadataEntry

	listing.add("# Rule program listing")
	listing.add("# auto-generated; do not edit")
	listing.add("")

	checklist := checklistSeeds(variables)
	program.Checklist = checklist
	if len(checklist) > 0 {
		listing.add("checklist:")
		for _, entry := range checklist {
			line := "  " + entry.Name + " = False"
			if q := collapseWhitespace(entry.Question); q != "" {
				line += "  # " + q
			}
			listing.add(line)
		}
		listing.add("")
	}

	program.LawState = lawStateSeeds(fullLaw)
	if len(program.LawState) > 0 {
		listing.add("state:")
		for _, name := range program.LawState {
			listing.add("  " + name + " = {'condition': False, 'legal': True}")
		}
		listing.add("")
	}

	first := true
	err := tree.WalkPreOrder(func(rec law.Record, depth int) error {
		if !first {
			listing.add("")
		}
		first = false
		unit, entry, err := emitUnit(tree, rec, listing)
		if err != nil {
			return err
		}
		program.Units = append(program.Units, unit)
		metadata = append(metadata, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, rootID := range tree.RootIDs() {
		rec, _ := tree.Node(rootID)
		varName := strings.TrimSpace(rec.VarName)
		if varName != "" {
			program.Roots = append(program.Roots, varName)
		}
	}

	listing.add("")
	listing.add("driver:")
	for _, root := range program.Roots {
		listing.add("  call " + root)
	}
	listing.add("  collect non-compliant law variables")

	return &Artifact{Program: program, Listing: listing.String(), Metadata: metadata}, nil
}

func emitUnit(tree *law.Tree, rec law.Record, listing *listingBuilder) (Unit, MetadataEntry, error) {
	varName := strings.TrimSpace(rec.VarName)
	if varName == "" {
		return Unit{}, MetadataEntry{}, fmt.Errorf("rulecode: node %q: %w", rec.ID, ErrMissingVarName)
	}
	entry := MetadataEntry{ID: rec.ID}
	unit := Unit{ID: rec.ID, VarName: varName}

	var condition, action, legal string
	if rec.Pseudocode != nil {
		condition = strings.TrimSpace(rec.Pseudocode.Condition)
		action = rec.Pseudocode.Action
		legal = strings.TrimSpace(rec.Pseudocode.Legal)
	}
	unit.Condition = condition
	unit.Legal = legal
	for _, childID := range tree.ChildIDs(rec.ID) {
		child, _ := tree.Node(childID)
		childVar := strings.TrimSpace(child.VarName)
		if childVar == "" {
			continue
		}
		unit.Calls = append(unit.Calls, childVar)
	}

	listing.add("unit " + varName + ":  # " + rec.ID)
	hasBody := false
	if condition != "" {
		lineNo := listing.add("  if " + condition + ":")
		entry.Condition = &lineNo
		hasBody = true
		listing.add("    " + varName + "['condition'] = True")
		for _, call := range unit.Calls {
			listing.add("    call " + call)
		}
		for _, rawLine := range strings.Split(action, "\n") {
			if strings.TrimSpace(rawLine) == "" {
				continue
			}
			trimmed := strings.TrimRight(rawLine, " \t\r")
			actionNo := listing.add("    " + trimmed)
			if entry.Action == nil {
				entry.Action = &actionNo
			}
			unit.Action = append(unit.Action, trimmed)
		}
		if legal != "" {
			legalNo := listing.add("    if not (" + legal + "):")
			entry.Legal = &legalNo
			listing.add("      " + varName + "['legal'] = False")
		}
	} else {
		for _, call := range unit.Calls {
			listing.add("  call " + call)
			hasBody = true
		}
	}
	if !hasBody {
		listing.add("  pass")
	}
	return unit, entry, nil
}

func checklistSeeds(variables []Variable) []ChecklistValue {
	seen := make(map[string]bool)
	var out []ChecklistValue
	for _, v := range variables {
		name := strings.TrimSpace(v.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, ChecklistValue{Name: name, Question: v.Question})
	}
	return out
}

func lawStateSeeds(fullLaw []law.Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range fullLaw {
		name := strings.TrimSpace(rec.VarName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
