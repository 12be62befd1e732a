// File path: internal/rulecode/instantiate.go
package rulecode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

// ChecklistResolver answers every checklist question for one case.
type ChecklistResolver interface {
	ResolveAll(ctx context.Context, caseContext string, variables []Variable) map[string]bool
}

// InstantiateDir binds one compiled template to each case: checklist
// questions are resolved against the case text, the program's CASE_ID and
// checklist seeds are rewritten, and the case-bound program lands under
// outRoot in a directory named after the template.
func InstantiateDir(ctx context.Context, dir, outRoot string, cases []casedata.Case, resolver ChecklistResolver) ([]string, error) {
	program, err := ReadProgram(filepath.Join(dir, ProgramFile))
	if err != nil {
		return nil, fmt.Errorf("rulecode: template %s not compiled: %w", filepath.Base(dir), err)
	}
	variables, err := ReadVariables(filepath.Join(dir, VariablesFile))
	if err != nil {
		return nil, err
	}
	outDir := filepath.Join(outRoot, filepath.Base(dir))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("rulecode: create case dir: %w", err)
	}
	written := make([]string, 0, len(cases))
	for _, c := range cases {
		values := resolver.ResolveAll(ctx, c.ChecklistContext(), variables)
		bound := program.WithCase(c.CaseID, values)
		path := filepath.Join(outDir, SafeCaseID(c.CaseID)+".json")
		if err := WriteJSON(path, bound); err != nil {
			return nil, err
		}
		common.Logger().Info("rulecode: case bound", "case", c.CaseID, "template", filepath.Base(dir))
		written = append(written, path)
	}
	return written, nil
}

// InstantiateTree runs InstantiateDir for every compiled template under
// root, in sorted order.
func InstantiateTree(ctx context.Context, root, outRoot string, cases []casedata.Case, resolver ChecklistResolver) ([]string, error) {
	dirs, err := DiscoverTemplateDirs(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("rulecode: no template directories under %s", root)
	}
	var written []string
	for _, dir := range dirs {
		paths, err := InstantiateDir(ctx, dir, outRoot, cases, resolver)
		if err != nil {
			return nil, err
		}
		written = append(written, paths...)
	}
	return written, nil
}
