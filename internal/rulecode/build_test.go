// File path: internal/rulecode/build_test.go
package rulecode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplateDir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	records, err := json.Marshal(outsourcingRecords())
	if err != nil {
		t.Fatalf("marshal records: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RuleCodeFile), records, 0o644); err != nil {
		t.Fatalf("write law_code: %v", err)
	}
	variables, err := json.Marshal(outsourcingVariables())
	if err != nil {
		t.Fatalf("marshal variables: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, VariablesFile), variables, 0o644); err != nil {
		t.Fatalf("write variables: %v", err)
	}
}

func TestBuildDirWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeTemplateDir(t, dir)
	artifact, err := BuildDir(dir, fullLawFixture())
	if err != nil {
		t.Fatalf("build dir: %v", err)
	}
	for _, name := range []string{ProgramFile, ListingFile, MetadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
	program, err := ReadProgram(filepath.Join(dir, ProgramFile))
	if err != nil {
		t.Fatalf("reload program: %v", err)
	}
	if len(program.Units) != len(artifact.Program.Units) {
		t.Fatalf("program roundtrip mismatch: %d != %d", len(program.Units), len(artifact.Program.Units))
	}
	outcome := Run(program.WithCase("case-01", map[string]bool{"BUSINESS_OUTSOURCES_PROCESSING": true}))
	if len(outcome.Results) != 1 {
		t.Fatalf("reloaded program did not run: %+v", outcome)
	}
}

func TestBuildDirFailsWithoutInputs(t *testing.T) {
	dir := t.TempDir()
	if _, err := BuildDir(dir, nil); err == nil {
		t.Fatalf("expected error for empty template dir")
	}
}

func TestDiscoverTemplateDirsSortsSubdirs(t *testing.T) {
	root := t.TempDir()
	writeTemplateDir(t, filepath.Join(root, "20240102_090000"))
	writeTemplateDir(t, filepath.Join(root, "20231230_120000"))
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	dirs, err := DiscoverTemplateDirs(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 template dirs, got %v", dirs)
	}
	if filepath.Base(dirs[0]) != "20231230_120000" || filepath.Base(dirs[1]) != "20240102_090000" {
		t.Fatalf("unexpected order: %v", dirs)
	}
}

func TestDiscoverTemplateDirsFallsBackToRoot(t *testing.T) {
	root := t.TempDir()
	writeTemplateDir(t, root)
	dirs, err := DiscoverTemplateDirs(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != root {
		t.Fatalf("expected root fallback, got %v", dirs)
	}
}

func TestReadRuleRecordsRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RuleCodeFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadRuleRecords(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
