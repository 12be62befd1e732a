// File path: internal/rulecode/build.go
package rulecode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
)

// ReadRuleRecords loads a law_code.json rule record list.
func ReadRuleRecords(path string) ([]law.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulecode: read rule records: %w", err)
	}
	var records []law.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("rulecode: parse %s: %w", path, err)
	}
	return records, nil
}

// BuildDir compiles one template directory in place: law_code.json and
// variables.json in, program.json, listing.txt and metadata.json out.
func BuildDir(dir string, fullLaw []law.Record) (*Artifact, error) {
	records, err := ReadRuleRecords(filepath.Join(dir, RuleCodeFile))
	if err != nil {
		return nil, err
	}
	variables, err := ReadVariables(filepath.Join(dir, VariablesFile))
	if err != nil {
		return nil, err
	}
	tree, err := law.BuildTree(records)
	if err != nil {
		return nil, err
	}
	artifact, err := Compile(tree, variables, fullLaw)
	if err != nil {
		return nil, err
	}
	if err := WriteJSON(filepath.Join(dir, ProgramFile), artifact.Program); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(filepath.Join(dir, ListingFile), []byte(artifact.Listing)); err != nil {
		return nil, err
	}
	if err := WriteJSON(filepath.Join(dir, MetadataFile), artifact.Metadata); err != nil {
		return nil, err
	}
	common.Logger().Info("rulecode: template compiled", "dir", dir, "units", len(artifact.Program.Units))
	return artifact, nil
}

// DiscoverTemplateDirs lists the immediate subdirectories of root holding
// both template inputs, sorted by name. When root itself holds them and no
// subdirectory does, root is the single target.
func DiscoverTemplateDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("rulecode: read root %s: %w", root, err)
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if isTemplateDir(dir) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	if len(dirs) == 0 && isTemplateDir(root) {
		dirs = append(dirs, root)
	}
	return dirs, nil
}

func isTemplateDir(dir string) bool {
	for _, name := range []string{RuleCodeFile, VariablesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
